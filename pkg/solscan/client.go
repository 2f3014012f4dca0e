package solscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultBaseURL = "https://api.solscan.io"
	DefaultTimeout = 10 * time.Second
)

// ErrNoImage is returned when the token meta carries no image
var ErrNoImage = errors.New("solscan: no image")

// Client represents a Solscan API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Solscan API client. apiKey may be empty.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// TokenMeta is the subset of the token meta response the service reads
type TokenMeta struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Image  string `json:"image"`
}

// TokenMeta fetches the secondary token description for mint
func (c *Client) TokenMeta(ctx context.Context, mint string) (*TokenMeta, error) {
	u, err := url.Parse(c.baseURL + "/v2/token/meta")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Add("token_address", mint)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("token", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	var body struct {
		Success bool       `json:"success"`
		Data    *TokenMeta `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Data == nil {
		return nil, fmt.Errorf("solscan: empty data for %s", mint)
	}
	return body.Data, nil
}

// Image returns the image URL of mint
func (c *Client) Image(ctx context.Context, mint string) (string, error) {
	meta, err := c.TokenMeta(ctx, mint)
	if err != nil {
		return "", err
	}
	if meta.Image == "" {
		return "", ErrNoImage
	}
	return meta.Image, nil
}
