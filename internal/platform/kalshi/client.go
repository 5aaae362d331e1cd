// Package kalshi is a read-only REST client for the Kalshi exchange API.
// Market data endpoints work unauthenticated; configuring an API key id and
// RSA private key enables signed requests with higher rate limits.
package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
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
const defaultPageSize = 200

// Config carries the client settings.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
	BaseURL string
	// ApiKeyID enables request signing together with an RSA key.
	ApiKeyID string
	// RateLimitRPS caps outgoing requests per second; <= 0 disables the cap.
	RateLimitRPS float64
	Timeout      time.Duration
}

// Client is the REST client for the Kalshi exchange API.
type Client struct {
	baseURL    string
	basePath   string
	apiKeyID   string
	privateKey *rsa.PrivateKey
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new Kalshi REST client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	basePath := ""
	if u, err := url.Parse(baseURL); err == nil {
		basePath = u.Path
	}

	return &Client{
		baseURL:    baseURL,
		basePath:   basePath,
		apiKeyID:   cfg.ApiKeyID,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger.With(slog.String("component", "kalshi_client")),
	}
}

// Source returns the venue tag.
func (c *Client) Source() string { return Source }

// SetRSAPrivateKey loads an RSA private key from PEM-encoded bytes and
// configures the client for signed requests.
func (c *Client) SetRSAPrivateKey(pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return fmt.Errorf("kalshi: no PEM block found in private key")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// Try PKCS1 as fallback.
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return fmt.Errorf("kalshi: parse private key: %w (pkcs1: %v)", err, pkcs1Err)
		}
		c.privateKey = pkcs1Key
		return nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("kalshi: expected RSA private key, got %T", key)
	}
	c.privateKey = rsaKey
	return nil
}

// GetMarkets returns one page of markets plus the cursor for the next page.
// An empty cursor return means the listing is exhausted.
func (c *Client) GetMarkets(ctx context.Context, status string, limit int, cursor string) ([]APIMarket, string, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	path := "/markets"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, "", fmt.Errorf("kalshi: get markets: %w", err)
	}

	var resp struct {
		Markets []APIMarket `json:"markets"`
		Cursor  string      `json:"cursor"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("kalshi: decode markets: %w", err)
	}

	return resp.Markets, resp.Cursor, nil
}

// GetMarket returns a single market by its ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (APIMarket, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(ticker))

	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return APIMarket{}, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}

	var resp struct {
		Market APIMarket `json:"market"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return APIMarket{}, fmt.Errorf("kalshi: decode market: %w", err)
	}

	return resp.Market, nil
}

// GetOrderbook returns the current orderbook for the given market ticker.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (Orderbook, error) {
	path := fmt.Sprintf("/markets/%s/orderbook", url.PathEscape(ticker))

	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return Orderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}

	var resp struct {
		Orderbook Orderbook `json:"orderbook"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Orderbook{}, fmt.Errorf("kalshi: decode orderbook: %w", err)
	}

	resp.Orderbook.Ticker = ticker
	return resp.Orderbook, nil
}

// Markets fetches up to limit open markets, following pagination cursors,
// and returns them normalized to the common domain shape.
func (c *Client) Markets(ctx context.Context, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	out := make([]domain.Market, 0, limit)
	cursor := ""
	fetchedAt := time.Now().UTC()

	for len(out) < limit {
		pageSize := limit - len(out)
		if pageSize > defaultPageSize {
			pageSize = defaultPageSize
		}

		page, next, err := c.GetMarkets(ctx, "open", pageSize, cursor)
		if err != nil {
			return nil, err
		}
		for i := range page {
			m := page[i].Normalize()
			m.FetchedAt = fetchedAt
			out = append(out, m)
			if len(out) == limit {
				break
			}
		}
		if next == "" || len(page) == 0 {
			break
		}
		cursor = next
	}

	c.logger.Debug("markets fetched", slog.Int("count", len(out)))
	return out, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, optionally signs, sends, and reads an HTTP request
// against the Kalshi API.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if err := c.signRequest(req, method); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// signRequest adds RSA authentication headers when a credential is
// configured; unsigned requests are fine for public market data. Kalshi
// signatures are RSA-PSS-SHA256 over timestamp + method + path (the path
// includes the API prefix and excludes the query string).
func (c *Client) signRequest(req *http.Request, method string) error {
	if c.apiKeyID == "" || c.privateKey == nil {
		return nil
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := ts + method + req.URL.Path

	hash := sha256.Sum256([]byte(message))
	signature, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return fmt.Errorf("RSA sign: %w", err)
	}

	req.Header.Set("KALSHI-ACCESS-KEY", c.apiKeyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(signature))
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)

	return nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func (c *Client) checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("kalshi: %w: %s (%s)", domain.ErrNotFound, apiErr.Message, apiErr.Code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("kalshi: %w: %s (%s)", domain.ErrUnauthorized, apiErr.Message, apiErr.Code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("kalshi: %w: %s (%s)", domain.ErrRateLimited, apiErr.Message, apiErr.Code)
	default:
		return fmt.Errorf("kalshi: HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}
