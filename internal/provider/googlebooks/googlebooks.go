// Package googlebooks implements the primary title-search catalog adapter
// on the Google Books volumes API.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/shelfscan/bookdex/internal/provider"
)

const defaultBaseURL = "https://www.googleapis.com/books/v1"

// ProviderKey is the rate-limiter key for this adapter.
const ProviderKey = "google-books"

// Compile-time check that Client implements provider.Catalog.
var _ provider.Catalog = (*Client)(nil)

// Client is the Google Books catalog adapter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	gate       provider.Gate
	logger     *zap.Logger
	maxResults int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Google Books adapter gated on the given limiter.
func New(gate provider.Gate, opts ...Option) *Client {
	if gate == nil {
		gate = provider.OpenGate()
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		gate:       gate,
		logger:     zap.NewNop(),
		maxResults: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements provider.Catalog.
func (c *Client) Name() string { return ProviderKey }

// volumesResponse mirrors the subset of the volumes API we read.
type volumesResponse struct {
	Items []struct {
		VolumeInfo struct {
			Title               string   `json:"title"`
			Authors             []string `json:"authors"`
			Categories          []string `json:"categories"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
			// averageRating and description are present upstream but
			// deliberately not mapped: catalog-carried ratings and
			// summaries are distrusted.
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Search implements provider.Catalog.
func (c *Client) Search(ctx context.Context, title string) ([]provider.Result, error) {
	if !c.gate.Allow(ProviderKey) {
		c.logger.Debug("rate limited, skipping", zap.String("provider", ProviderKey))
		return nil, nil
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf("intitle:%q", title))
	q.Set("maxResults", fmt.Sprintf("%d", c.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/volumes?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google books: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google books: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google books: status %d: %s", resp.StatusCode, body)
	}

	var vr volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("google books: decode: %w", err)
	}

	results := make([]provider.Result, 0, len(vr.Items))
	for _, item := range vr.Items {
		vi := item.VolumeInfo
		if vi.Title == "" {
			continue
		}
		r := provider.Result{
			Title:      vi.Title,
			CoverURL:   vi.ImageLinks.Thumbnail,
			Categories: vi.Categories,
		}
		if len(vi.Authors) > 0 {
			r.Author = vi.Authors[0]
		}
		for _, id := range vi.IndustryIdentifiers {
			if id.Type == "ISBN_13" {
				r.ISBN = id.Identifier
				break
			}
			if id.Type == "ISBN_10" && r.ISBN == "" {
				r.ISBN = id.Identifier
			}
		}
		results = append(results, r)
	}
	return results, nil
}
