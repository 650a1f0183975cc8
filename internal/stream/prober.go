package stream

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Prober checks that a camera stream's media is fetchable and reports
// its duration. A stream whose probe fails never reports ready.
type Prober interface {
	Probe(ctx context.Context, source string) (float64, error)
}

// HTTPProber probes media locators with a HEAD request. The duration is
// taken from the X-Content-Duration (or Content-Duration) response
// header, in seconds.
type HTTPProber struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPProber creates a prober with the given per-probe timeout
func NewHTTPProber(timeout time.Duration, logger *zap.Logger) *HTTPProber {
	return &HTTPProber{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Probe issues a HEAD request against the source locator
func (p *HTTPProber) Probe(ctx context.Context, source string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, source, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("probe returned status %d", resp.StatusCode)
	}

	header := resp.Header.Get("X-Content-Duration")
	if header == "" {
		header = resp.Header.Get("Content-Duration")
	}
	if header == "" {
		p.logger.Debug("Stream has no duration header", zap.String("source", source))
		return 0, nil
	}

	duration, err := strconv.ParseFloat(header, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration header %q: %w", header, err)
	}

	return duration, nil
}
