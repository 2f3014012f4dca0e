package rugcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"poolwatch/internal/models"
)

const (
	DefaultBaseURL = "https://api.rugcheck.xyz"
	DefaultTimeout = 5 * time.Second
)

// Client represents a RugCheck API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new RugCheck API client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Report fetches the security report of mint
func (c *Client) Report(ctx context.Context, mint string) (*models.RiskReport, error) {
	endpoint := fmt.Sprintf("%s/v1/tokens/%s/report", c.baseURL, url.PathEscape(mint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	var report models.RiskReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if report.Mint == "" {
		report.Mint = mint
	}
	return &report, nil
}
