package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	uriTimeout = 10 * time.Second
	// off-chain documents are small; anything larger is not metadata
	maxDocumentSize = 1 << 20
)

// OffChainMetadata is the JSON document referenced by a metadata URI
type OffChainMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Image    string `json:"image"`
	ImageURL string `json:"imageUrl"`
}

// ImageLink returns image, falling back to imageUrl
func (d *OffChainMetadata) ImageLink() string {
	if d.Image != "" {
		return d.Image
	}
	return d.ImageURL
}

// URIFetcher downloads off-chain metadata documents
type URIFetcher struct {
	httpClient *http.Client
}

// NewURIFetcher creates a fetcher with the default timeout
func NewURIFetcher() *URIFetcher {
	return &URIFetcher{
		httpClient: &http.Client{Timeout: uriTimeout},
	}
}

// Fetch GETs uri and decodes it as an off-chain metadata document
func (f *URIFetcher) Fetch(ctx context.Context, uri string) (*OffChainMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata uri returned status code: %d", resp.StatusCode)
	}

	var doc OffChainMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode metadata document: %w", err)
	}
	return &doc, nil
}
