package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client issues Apicalypse queries against the catalog data endpoints. A
// shared limiter enforces the minimum inter-request delay across every call,
// so pagination pages and lookup chunks are paced alike.
type Client struct {
	baseURL    string
	clientID   string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("igdb error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, baseURL, clientID string, minInterval time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// SetToken installs the bearer token used by subsequent queries.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Query posts an Apicalypse body to the named endpoint and returns the raw
// JSON response. A non-2xx status fails immediately as an *APIError carrying
// the status code and response body.
func (c *Client) Query(ctx context.Context, endpoint, query string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func queryInto[T any](ctx context.Context, c *Client, endpoint string, q *Query) ([]T, error) {
	body, err := c.Query(ctx, endpoint, q.String())
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return out, nil
}

func (c *Client) Games(ctx context.Context, q *Query) ([]Game, error) {
	return queryInto[Game](ctx, c, "games", q)
}

func (c *Client) Genres(ctx context.Context, q *Query) ([]Genre, error) {
	return queryInto[Genre](ctx, c, "genres", q)
}

func (c *Client) Platforms(ctx context.Context, q *Query) ([]Platform, error) {
	return queryInto[Platform](ctx, c, "platforms", q)
}

func (c *Client) InvolvedCompanies(ctx context.Context, q *Query) ([]InvolvedCompany, error) {
	return queryInto[InvolvedCompany](ctx, c, "involved_companies", q)
}

func (c *Client) Covers(ctx context.Context, q *Query) ([]Image, error) {
	return queryInto[Image](ctx, c, "covers", q)
}

func (c *Client) Screenshots(ctx context.Context, q *Query) ([]Image, error) {
	return queryInto[Image](ctx, c, "screenshots", q)
}
