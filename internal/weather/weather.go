// Package weather adapts an upstream weather API into the
// threshold.Snapshot shape the Threshold Evaluator consumes.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"treewatch/internal/geo"
	"treewatch/internal/threshold"
)

// Provider returns a weather snapshot for a point. Implementations are
// expected to fail fast on a single bad tree without affecting the rest of
// a sweep batch, per the Weather Sweep's per-tree failure isolation.
type Provider interface {
	Snapshot(ctx context.Context, point geo.Point) (threshold.Snapshot, error)
}

// HTTPClient is satisfied by *http.Client; narrowed for testability the way
// the pack's weather crawler takes an injectable client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// HTTPProvider calls a weather API over HTTP, retrying transient failures
// with exponential backoff before giving up on a single tree.
type HTTPProvider struct {
	client  HTTPClient
	baseURL string
	apiKey  string
	logger  *zap.Logger
	retries int
}

// NewHTTPProvider builds a provider pointed at baseURL, authenticated with
// apiKey.
func NewHTTPProvider(baseURL, apiKey string, logger *zap.Logger) *HTTPProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProvider{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
		retries: maxRetries,
	}
}

// WithClient overrides the HTTP client, for tests.
func (p *HTTPProvider) WithClient(client HTTPClient) *HTTPProvider {
	p.client = client
	return p
}

type currentConditionsResponse struct {
	TemperatureC float64 `json:"temperature_c"`
	WindSpeedKMH float64 `json:"wind_speed_kmh"`
	HumidityPct  float64 `json:"humidity_pct"`
	RainfallMM   float64 `json:"rainfall_mm"`
	Description  string  `json:"description"`
}

// Snapshot fetches current conditions for point, retrying transient HTTP
// and network failures with exponential backoff.
func (p *HTTPProvider) Snapshot(ctx context.Context, point geo.Point) (threshold.Snapshot, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return threshold.Snapshot{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		snapshot, err := p.fetchOnce(ctx, point)
		if err == nil {
			return snapshot, nil
		}
		lastErr = err
		p.logger.Warn("weather provider attempt failed",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return threshold.Snapshot{}, fmt.Errorf("weather: fetch snapshot after %d attempts: %w", p.retries+1, lastErr)
}

func (p *HTTPProvider) fetchOnce(ctx context.Context, point geo.Point) (threshold.Snapshot, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return threshold.Snapshot{}, fmt.Errorf("weather: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("lat", fmt.Sprintf("%f", point.Lat))
	q.Set("lng", fmt.Sprintf("%f", point.Lng))
	q.Set("key", p.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return threshold.Snapshot{}, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return threshold.Snapshot{}, fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return threshold.Snapshot{}, fmt.Errorf("weather: unexpected status %d", resp.StatusCode)
	}

	var body currentConditionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return threshold.Snapshot{}, fmt.Errorf("weather: decode response: %w", err)
	}

	temp, wind, hum, rain := body.TemperatureC, body.WindSpeedKMH, body.HumidityPct, body.RainfallMM
	return threshold.Snapshot{
		Temperature: &temp,
		WindSpeed:   &wind,
		Humidity:    &hum,
		Rainfall:    &rain,
		Description: body.Description,
	}, nil
}
