package dextools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://public-api.dextools.io/trial"
	DefaultTimeout = 5 * time.Second
	chain          = "solana"
)

// ErrNoData is returned when the API answers without a data payload
var ErrNoData = errors.New("dextools: empty data")

// Client represents a Dextools API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Dextools API client. rps <= 0 disables throttling.
func NewClient(apiKey, baseURL string, rps float64) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				IdleConnTimeout:       10 * time.Second,
				TLSHandshakeTimeout:   DefaultTimeout,
				ResponseHeaderTimeout: DefaultTimeout,
			},
		},
		limiter: limiter,
	}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, ErrNoData
	}
	return env.Data, nil
}

// TokenInfo returns the token statistics object for mint
func (c *Client) TokenInfo(ctx context.Context, mint string) (map[string]interface{}, error) {
	data, err := c.get(ctx, fmt.Sprintf("/v2/token/%s/%s/info", chain, url.PathEscape(mint)))
	if err != nil {
		return nil, err
	}

	var info map[string]interface{}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode token info: %w", err)
	}
	if len(info) == 0 {
		return nil, ErrNoData
	}
	return info, nil
}

// PoolLiquidity returns the USD liquidity of pool
func (c *Client) PoolLiquidity(ctx context.Context, pool string) (float64, error) {
	data, err := c.get(ctx, fmt.Sprintf("/v2/pool/%s/%s/liquidity", chain, url.PathEscape(pool)))
	if err != nil {
		return 0, err
	}

	var body struct {
		Liquidity *float64 `json:"liquidity"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, fmt.Errorf("failed to decode pool liquidity: %w", err)
	}
	if body.Liquidity == nil {
		return 0, ErrNoData
	}
	return *body.Liquidity, nil
}
