package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/oddslab/odds-intel-service/internal/models"
)

// Fetcher fetches one bookmaker's raw payload for a sport/league query.
// Abstracted so the aggregator can be tested without network.
type Fetcher interface {
	Fetch(ctx context.Context, src models.BookmakerSource, sport, league string) ([]byte, error)
}

// Client is the default HTTP fetcher for bookmaker sources. One shared
// http.Client; per-source deadlines come from the caller's context.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates the bookmaker HTTP client. The client-level timeout is a
// backstop; the aggregator bounds each fetch with its own context deadline.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "odds-intel-service/1.0",
	}
}

// Fetch retrieves the raw response body from a bookmaker endpoint. The body
// is returned untouched; decoding is the normalizer's concern.
func (c *Client) Fetch(ctx context.Context, src models.BookmakerSource, sport, league string) ([]byte, error) {
	endpoint, err := buildURL(src.BaseURL, sport, league)
	if err != nil {
		return nil, fmt.Errorf("building url for source %s: %w", src.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for source %s: %w", src.ID, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if src.APIKey != "" {
		req.Header.Set("X-Api-Key", src.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching source %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("source %s returned status %d", src.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading source %s body: %w", src.ID, err)
	}
	return body, nil
}

func buildURL(base, sport, league string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("sport", sport)
	if league != "" {
		q.Set("league", league)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
