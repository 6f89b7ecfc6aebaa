package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenProvider_ListEvents(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "fresh-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	eventsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"events": []map[string]interface{}{
				{
					"id":          "e1",
					"summary":     "Watering - Oak Tree",
					"description": "care visit for tree t1",
					"start":       time.Now().Add(48 * time.Hour).Format(time.RFC3339),
					"end":         time.Now().Add(49 * time.Hour).Format(time.RFC3339),
				},
			},
		})
	}))
	defer eventsServer.Close()

	provider := NewRefreshTokenProvider(OAuth2Config{
		ClientID:           "client",
		ClientSecret:       "secret",
		SystemRefreshToken: "refresh-token",
		TokenURL:           tokenServer.URL,
		EventsURL:          eventsServer.URL,
	})

	events, err := provider.ListEvents(context.Background(), time.Now(), time.Now().Add(7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "Watering - Oak Tree", events[0].Summary)
}
