// Package config loads the dispatch engine's environment-supplied
// configuration into a typed struct, following the joker_backend
// shared/config.Load pattern: godotenv for local convenience, os.Getenv
// with typed defaults for everything else.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognized environment key (§6/§10). Durations are
// parsed once at load time so the rest of the engine never re-parses them.
type Config struct {
	Port int
	DBURL string

	JWTSecret string
	JWTExpiry time.Duration

	WeatherAPIKey string

	ThresholdTempHigh float64
	ThresholdWindHigh float64
	ThresholdRainLow  float64
	StormKeywords     []string

	VolunteerMatchRadiusKM float64

	WeatherPollInterval  time.Duration
	RetryPollInterval    time.Duration
	CalendarPollInterval time.Duration
	CalendarCareKeywords []string

	CalendarClientID           string
	CalendarClientSecret       string
	CalendarSystemRefreshToken string
	CalendarTokenURL           string
	CalendarEventsURL          string

	AlertAcceptTimeoutMinutes int

	AllowedClientOrigin string
	RedisURL            string
}

// defaults mirror the Glossary's default configuration bundle.
const (
	defaultPort                      = 8080
	defaultJWTExpiry                 = 24 * time.Hour
	defaultThresholdTempHigh         = 35.0
	defaultThresholdWindHigh         = 60.0
	defaultThresholdRainLow          = 5.0
	defaultVolunteerMatchRadiusKM    = 5.0
	defaultWeatherPollInterval       = 15 * time.Minute
	defaultRetryPollInterval         = 2 * time.Minute
	defaultCalendarPollInterval      = 30 * time.Minute
	defaultAlertAcceptTimeoutMinutes = 15
)

var (
	defaultStormKeywords     = []string{"thunderstorm", "tornado", "hurricane"}
	defaultCareKeywords      = []string{"watering", "pruning", "inspection", "trimming", "fertilizing", "treatment"}
)

// Load reads .env (if present, ignored otherwise) and environment variables
// into a Config. DBURL and JWTSecret have no default: Load returns an error
// if either is unset, since the engine cannot run without persistence or a
// way to validate bearer credentials.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config: DB_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	port, err := getEnvInt("PORT", defaultPort)
	if err != nil {
		return nil, err
	}

	jwtExpiry, err := getEnvDuration("JWT_EXPIRY", defaultJWTExpiry)
	if err != nil {
		return nil, err
	}

	tempHigh, err := getEnvFloat("THRESHOLD_TEMP_HIGH", defaultThresholdTempHigh)
	if err != nil {
		return nil, err
	}

	windHigh, err := getEnvFloat("THRESHOLD_WIND_HIGH", defaultThresholdWindHigh)
	if err != nil {
		return nil, err
	}

	rainLow, err := getEnvFloat("THRESHOLD_RAIN_LOW", defaultThresholdRainLow)
	if err != nil {
		return nil, err
	}

	radiusKM, err := getEnvFloat("VOLUNTEER_MATCH_RADIUS_KM", defaultVolunteerMatchRadiusKM)
	if err != nil {
		return nil, err
	}

	weatherPoll, err := getEnvDuration("WEATHER_POLL_INTERVAL", defaultWeatherPollInterval)
	if err != nil {
		return nil, err
	}

	retryPoll, err := getEnvDuration("RETRY_POLL_INTERVAL", defaultRetryPollInterval)
	if err != nil {
		return nil, err
	}

	calendarPoll, err := getEnvDuration("CALENDAR_POLL_INTERVAL", defaultCalendarPollInterval)
	if err != nil {
		return nil, err
	}

	acceptTimeout, err := getEnvInt("ALERT_ACCEPT_TIMEOUT_MINUTES", defaultAlertAcceptTimeoutMinutes)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:   port,
		DBURL:  dbURL,

		JWTSecret: jwtSecret,
		JWTExpiry: jwtExpiry,

		WeatherAPIKey: os.Getenv("WEATHER_API_KEY"),

		ThresholdTempHigh: tempHigh,
		ThresholdWindHigh: windHigh,
		ThresholdRainLow:  rainLow,
		StormKeywords:     getEnvList("STORM_KEYWORDS", defaultStormKeywords),

		VolunteerMatchRadiusKM: radiusKM,

		WeatherPollInterval:  weatherPoll,
		RetryPollInterval:    retryPoll,
		CalendarPollInterval: calendarPoll,
		CalendarCareKeywords: getEnvList("CALENDAR_CARE_KEYWORDS", defaultCareKeywords),

		CalendarClientID:           os.Getenv("CALENDAR_CLIENT_ID"),
		CalendarClientSecret:       os.Getenv("CALENDAR_CLIENT_SECRET"),
		CalendarSystemRefreshToken: os.Getenv("CALENDAR_SYSTEM_REFRESH_TOKEN"),
		CalendarTokenURL:           os.Getenv("CALENDAR_TOKEN_URL"),
		CalendarEventsURL:          os.Getenv("CALENDAR_EVENTS_URL"),

		AlertAcceptTimeoutMinutes: acceptTimeout,

		AllowedClientOrigin: getEnv("ALLOWED_CLIENT_ORIGIN", "http://localhost:5173"),
		RedisURL:            os.Getenv("REDIS_URL"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a duration (e.g. 15m): %w", key, err)
	}
	return v, nil
}

// getEnvList splits a comma-separated env var into a trimmed, lower-cased
// slice. Keyword matching (threshold evaluator, calendar sweep) is
// case-insensitive, so keywords are normalized once here.
func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
