// Package calendar adapts an upstream calendar API into the event shape
// the Calendar Sweep scans for tree-care relatedness.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Event is a scheduled calendar event, as returned for a time window.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Provider lists scheduled events in a time window, authenticated on
// behalf of the system rather than any individual user.
type Provider interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
}

// OAuth2Config points the refresh-token adapter at the calendar API's OAuth2
// token endpoint and the system account whose calendar is scanned.
type OAuth2Config struct {
	ClientID           string
	ClientSecret       string
	SystemRefreshToken string
	TokenURL           string
	EventsURL          string
}

// RefreshTokenProvider lists events using a long-lived system refresh token
// instead of an interactive user session, the same oauth2.Config shape the
// teacher uses for its own client-credentials flow, repointed at a refresh
// token grant.
type RefreshTokenProvider struct {
	oauthConfig *oauth2.Config
	token       *oauth2.Token
	eventsURL   string
}

// NewRefreshTokenProvider builds a provider that exchanges config's system
// refresh token for access tokens as needed.
func NewRefreshTokenProvider(config OAuth2Config) *RefreshTokenProvider {
	return &RefreshTokenProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL: config.TokenURL,
			},
		},
		token:     &oauth2.Token{RefreshToken: config.SystemRefreshToken},
		eventsURL: config.EventsURL,
	}
}

type eventsResponse struct {
	Events []struct {
		ID          string    `json:"id"`
		Summary     string    `json:"summary"`
		Description string    `json:"description"`
		Start       time.Time `json:"start"`
		End         time.Time `json:"end"`
	} `json:"events"`
}

// ListEvents fetches events in [from, to], refreshing the access token
// through the configured OAuth2 endpoint as needed.
func (p *RefreshTokenProvider) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	client := p.oauthConfig.Client(ctx, p.token)

	u, err := url.Parse(p.eventsURL)
	if err != nil {
		return nil, fmt.Errorf("calendar: parse events url: %w", err)
	}
	q := u.Query()
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("calendar: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar: unexpected status %d", resp.StatusCode)
	}

	var body eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("calendar: decode response: %w", err)
	}

	events := make([]Event, 0, len(body.Events))
	for _, e := range body.Events {
		events = append(events, Event{
			ID:          e.ID,
			Summary:     e.Summary,
			Description: e.Description,
			Start:       e.Start,
			End:         e.End,
		})
	}
	return events, nil
}
