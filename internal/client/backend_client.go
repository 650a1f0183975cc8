package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"roadlens/drive-review/internal/models"

	"go.uber.org/zap"
)

// BackendClient handles communication with the drives backend API
type BackendClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBackendClient creates a new backend API client
func NewBackendClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *BackendClient {
	return &BackendClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ListDrives fetches the session list from the backend
func (c *BackendClient) ListDrives(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := c.getJSON(ctx, "/api/drives", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetDrive fetches the full record for one session, including score and
// timeline
func (c *BackendClient) GetDrive(ctx context.Context, id string) (*models.DriveRecord, error) {
	var record models.DriveRecord
	path := "/api/drive/" + url.PathEscape(id)
	if err := c.getJSON(ctx, path, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// HealthCheck checks if the backend is reachable
func (c *BackendClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// getJSON performs a GET request and decodes the JSON response into out
func (c *BackendClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Backend request failed",
			zap.Error(err),
			zap.String("path", path),
			zap.Duration("duration", duration),
		)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		c.logger.Debug("Backend request succeeded",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", duration),
		)
		return nil
	}

	errMsg := fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.Error("Authentication failed",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
		)
		return &AuthError{Message: errMsg, StatusCode: resp.StatusCode}
	case http.StatusTooManyRequests:
		c.logger.Warn("Rate limited",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
		)
		return &RateLimitError{Message: errMsg, StatusCode: resp.StatusCode}
	case http.StatusNotFound:
		c.logger.Warn("Not found",
			zap.String("path", path),
		)
		return &NotFoundError{Message: errMsg, StatusCode: resp.StatusCode}
	default:
		c.logger.Error("Backend error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return &BackendError{Message: errMsg, StatusCode: resp.StatusCode}
	}
}

// Error types
type AuthError struct {
	Message    string
	StatusCode int
}

func (e *AuthError) Error() string {
	return e.Message
}

type RateLimitError struct {
	Message    string
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Message    string
	StatusCode int
}

func (e *NotFoundError) Error() string {
	return e.Message
}

type BackendError struct {
	Message    string
	StatusCode int
}

func (e *BackendError) Error() string {
	return e.Message
}
