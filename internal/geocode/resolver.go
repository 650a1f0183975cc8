package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Resolver turns a coordinate into a human-readable address
type Resolver interface {
	Resolve(ctx context.Context, lat, lon float64) (string, error)
}

// NominatimResolver resolves addresses against a Nominatim-compatible
// reverse geocoding endpoint
type NominatimResolver struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewNominatimResolver creates a resolver for the given endpoint. The
// user agent is mandatory per the Nominatim usage policy.
func NewNominatimResolver(baseURL, userAgent string, timeout time.Duration, logger *zap.Logger) *NominatimResolver {
	return &NominatimResolver{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Resolve performs one reverse geocoding lookup
func (r *NominatimResolver) Resolve(ctx context.Context, lat, lon float64) (string, error) {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))

	endpoint := fmt.Sprintf("%s/reverse?%s", r.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocoding returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed reverseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != "" {
		return "", fmt.Errorf("reverse geocoding error: %s", parsed.Error)
	}
	if parsed.DisplayName == "" {
		return "", fmt.Errorf("reverse geocoding returned no address")
	}

	return parsed.DisplayName, nil
}
