// Package polymarket is a read-only client for the Polymarket Gamma API,
// which provides market discovery, metadata, and AMM mid prices.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// defaultPageSize is the per-request market count used when paginating.
const defaultPageSize = 100

// Config carries the client settings.
type Config struct {
	// GammaHost is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
	GammaHost string
	// RateLimitRPS caps outgoing requests per second; <= 0 disables the cap.
	RateLimitRPS float64
	Timeout      time.Duration
}

// GammaClient is the REST client for the Polymarket Gamma API.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewGammaClient creates a new Gamma API client.
func NewGammaClient(cfg Config, logger *slog.Logger) *GammaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}

	return &GammaClient{
		baseURL:    strings.TrimRight(cfg.GammaHost, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger.With(slog.String("component", "gamma_client")),
	}
}

// Source returns the venue tag.
func (g *GammaClient) Source() string { return Source }

// ListMarkets returns one page of markets.
func (g *GammaClient) ListMarkets(ctx context.Context, closed bool, limit, offset int) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("closed", strconv.FormatBool(closed))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	return apiMarkets, nil
}

// GetMarketBySlug returns a single market looked up by its URL slug.
func (g *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (APIMarket, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: get market by slug %s: %w", slug, err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	if len(apiMarkets) == 0 {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: %w: slug=%s", domain.ErrNotFound, slug)
	}

	return apiMarkets[0], nil
}

// Markets fetches up to limit open markets, paging by offset, and returns
// them normalized to the common domain shape.
func (g *GammaClient) Markets(ctx context.Context, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	out := make([]domain.Market, 0, limit)
	fetchedAt := time.Now().UTC()

	for offset := 0; len(out) < limit; {
		pageSize := limit - len(out)
		if pageSize > defaultPageSize {
			pageSize = defaultPageSize
		}

		page, err := g.ListMarkets(ctx, false, pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			m := page[i].Normalize()
			m.FetchedAt = fetchedAt
			out = append(out, m)
			if len(out) == limit {
				break
			}
		}
		offset += len(page)
	}

	g.logger.Debug("markets fetched", slog.Int("count", len(out)))
	return out, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
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
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
