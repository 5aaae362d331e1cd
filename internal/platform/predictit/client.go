// Package predictit is a read-only client for PredictIt's public market data
// API. The API is unauthenticated but aggressively rate limited, so the
// client defaults to a conservative request rate.
package predictit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Config carries the client settings.
type Config struct {
	// BaseURL is the API root, e.g. "https://www.predictit.org/api".
	BaseURL string
	// RateLimitRPS caps outgoing requests per second; <= 0 disables the cap.
	RateLimitRPS float64
	Timeout      time.Duration
}

// Client is the REST client for the PredictIt market data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new PredictIt client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger.With(slog.String("component", "predictit_client")),
	}
}

// Source returns the venue tag.
func (c *Client) Source() string { return Source }

// AllMarkets returns every market PredictIt currently lists. The API has no
// pagination; the full book arrives in one response.
func (c *Client) AllMarkets(ctx context.Context) ([]APIMarket, error) {
	body, err := c.doGet(ctx, "/marketdata/all/")
	if err != nil {
		return nil, fmt.Errorf("predictit: all markets: %w", err)
	}

	var resp struct {
		Markets []APIMarket `json:"markets"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("predictit: decode markets: %w", err)
	}

	return resp.Markets, nil
}

// GetMarket returns a single market by its numeric id.
func (c *Client) GetMarket(ctx context.Context, id int64) (APIMarket, error) {
	path := fmt.Sprintf("/marketdata/markets/%s", strconv.FormatInt(id, 10))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return APIMarket{}, fmt.Errorf("predictit: get market %d: %w", id, err)
	}

	var m APIMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return APIMarket{}, fmt.Errorf("predictit: decode market: %w", err)
	}

	return m, nil
}

// Markets fetches all listed markets and returns up to limit of them
// normalized to the common domain shape.
func (c *Client) Markets(ctx context.Context, limit int) ([]domain.Market, error) {
	raw, err := c.AllMarkets(ctx)
	if err != nil {
		return nil, err
	}

	fetchedAt := time.Now().UTC()
	out := make([]domain.Market, 0, len(raw))
	for i := range raw {
		if limit > 0 && len(out) == limit {
			break
		}
		m := raw[i].Normalize()
		m.FetchedAt = fetchedAt
		out = append(out, m)
	}

	c.logger.Debug("markets fetched", slog.Int("count", len(out)))
	return out, nil
}

// doGet sends an unauthenticated GET request to the PredictIt API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
