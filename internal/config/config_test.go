package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "DB_URL", "JWT_SECRET", "JWT_EXPIRY", "WEATHER_API_KEY",
		"THRESHOLD_TEMP_HIGH", "THRESHOLD_WIND_HIGH", "THRESHOLD_RAIN_LOW",
		"STORM_KEYWORDS", "VOLUNTEER_MATCH_RADIUS_KM", "WEATHER_POLL_INTERVAL",
		"RETRY_POLL_INTERVAL", "CALENDAR_POLL_INTERVAL", "CALENDAR_CARE_KEYWORDS",
		"CALENDAR_CLIENT_ID", "CALENDAR_CLIENT_SECRET", "CALENDAR_SYSTEM_REFRESH_TOKEN",
		"ALERT_ACCEPT_TIMEOUT_MINUTES", "ALLOWED_CLIENT_ORIGIN", "REDIS_URL",
	}
	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_RequiresDBURLAndJWTSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	assert.ErrorContains(t, err, "DB_URL")

	os.Setenv("DB_URL", "postgres://localhost/test")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("DB_URL", "postgres://localhost/test")
	os.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultThresholdTempHigh, cfg.ThresholdTempHigh)
	assert.Equal(t, defaultVolunteerMatchRadiusKM, cfg.VolunteerMatchRadiusKM)
	assert.Equal(t, defaultStormKeywords, cfg.StormKeywords)
	assert.Equal(t, defaultCareKeywords, cfg.CalendarCareKeywords)
}

func TestLoad_OverridesAndNormalizesKeywords(t *testing.T) {
	clearEnv(t)
	os.Setenv("DB_URL", "postgres://localhost/test")
	os.Setenv("JWT_SECRET", "secret")
	os.Setenv("STORM_KEYWORDS", "Blizzard, TORNADO ,hurricane")
	os.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"blizzard", "tornado", "hurricane"}, cfg.StormKeywords)
}

func TestLoad_InvalidIntReturnsError(t *testing.T) {
	clearEnv(t)
	os.Setenv("DB_URL", "postgres://localhost/test")
	os.Setenv("JWT_SECRET", "secret")
	os.Setenv("PORT", "not-a-number")

	_, err := Load()
	assert.ErrorContains(t, err, "PORT")
}
