// Package openlibrary implements the fallback catalog adapter on the Open
// Library search API.
package openlibrary

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

const defaultBaseURL = "https://openlibrary.org"

// ProviderKey is the rate-limiter key for this adapter.
const ProviderKey = "open-library"

// Compile-time check that Client implements provider.Catalog.
var _ provider.Catalog = (*Client)(nil)

// Client is the Open Library catalog adapter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	gate       provider.Gate
	logger     *zap.Logger
	limit      int
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

// New creates an Open Library adapter gated on the given limiter.
func New(gate provider.Gate, opts ...Option) *Client {
	if gate == nil {
		gate = provider.OpenGate()
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		gate:       gate,
		logger:     zap.NewNop(),
		limit:      5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements provider.Catalog.
func (c *Client) Name() string { return ProviderKey }

// searchResponse mirrors the subset of search.json we read. Ratings are
// not part of this API's document shape; subjects map to categories.
type searchResponse struct {
	Docs []struct {
		Title      string   `json:"title"`
		AuthorName []string `json:"author_name"`
		ISBN       []string `json:"isbn"`
		CoverID    int      `json:"cover_i"`
		Subject    []string `json:"subject"`
	} `json:"docs"`
}

// Search implements provider.Catalog.
func (c *Client) Search(ctx context.Context, title string) ([]provider.Result, error) {
	if !c.gate.Allow(ProviderKey) {
		c.logger.Debug("rate limited, skipping", zap.String("provider", ProviderKey))
		return nil, nil
	}

	q := url.Values{}
	q.Set("title", title)
	q.Set("limit", fmt.Sprintf("%d", c.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("open library: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open library: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("open library: status %d: %s", resp.StatusCode, body)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("open library: decode: %w", err)
	}

	results := make([]provider.Result, 0, len(sr.Docs))
	for _, doc := range sr.Docs {
		if doc.Title == "" {
			continue
		}
		r := provider.Result{
			Title:      doc.Title,
			Categories: doc.Subject,
		}
		if len(doc.AuthorName) > 0 {
			r.Author = doc.AuthorName[0]
		}
		for _, isbn := range doc.ISBN {
			if len(isbn) >= 13 {
				r.ISBN = isbn
				break
			}
			if r.ISBN == "" && len(isbn) >= 10 {
				r.ISBN = isbn
			}
		}
		if doc.CoverID > 0 {
			r.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", doc.CoverID)
		}
		if len(r.Categories) > 8 {
			r.Categories = r.Categories[:8]
		}
		results = append(results, r)
	}
	return results, nil
}
