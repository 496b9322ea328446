package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pairwatch/internal/chain"
	"pairwatch/internal/metrics"
	"pairwatch/internal/model"
)

const (
	DefaultBaseURL = "https://api.geckoterminal.com/api/v2"
	DefaultNetwork = "bitrock"

	maxBodyBytes = 1 << 20
)

var (
	// ErrMarketDataUnavailable wraps every failed lookup.
	ErrMarketDataUnavailable = errors.New("market data unavailable")

	errPoolNotIndexed = errors.New("pool not indexed")
)

// ClientConfig configures the market data client.
type ClientConfig struct {
	BaseURL           string
	Network           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerCooldown   time.Duration
	HTTPClient        *http.Client
	Metrics           *metrics.Pipeline
}

// Client fetches pool valuation data from the GeckoTerminal API. Lookups
// are single best-effort requests; failures yield empty MarketData.
type Client struct {
	baseURL string
	network string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Pipeline
	logger  *zap.Logger
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		network: cfg.Network,
		timeout: cfg.Timeout,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		metrics: cfg.Metrics,
		logger:  logger,
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "market-data",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errPoolNotIndexed)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// FetchMarketData returns the metrics GeckoTerminal reports for pair. It
// never fails: any error is logged and an empty result returned. Fields the
// API omits stay nil.
func (c *Client) FetchMarketData(ctx context.Context, pair common.Address) model.MarketData {
	data, err := c.Fetch(ctx, pair)
	if err != nil {
		fields := []zap.Field{
			zap.String("kind", failureKind(err)),
			zap.String("pair", pair.Hex()),
			zap.String("network", c.network),
			zap.Error(err),
		}
		if errors.Is(err, errPoolNotIndexed) {
			c.logger.Info("market data not available yet", fields...)
		} else {
			c.logger.Warn("market data fetch failed", fields...)
		}
		c.metrics.EnrichmentFailed("market")
		return model.MarketData{}
	}
	return data
}

// Fetch performs one lookup and reports its error. Errors wrap
// ErrMarketDataUnavailable.
func (c *Client) Fetch(ctx context.Context, pair common.Address) (model.MarketData, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return model.MarketData{}, fmt.Errorf("%w: rate limit wait: %w", ErrMarketDataUnavailable, err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.request(ctx, pair)
	})
	if err != nil {
		return model.MarketData{}, fmt.Errorf("%w: %w", ErrMarketDataUnavailable, err)
	}
	return result.(model.MarketData), nil
}

func (c *Client) request(ctx context.Context, pair common.Address) (model.MarketData, error) {
	url := fmt.Sprintf("%s/networks/%s/pools/%s", c.baseURL, c.network, chain.Canonical(pair))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.MarketData{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.MarketData{}, fmt.Errorf("get pool: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.MarketData{}, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return model.MarketData{}, errPoolNotIndexed
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.MarketData{}, &StatusError{Code: resp.StatusCode}
	}

	return parsePool(body, c.logger)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// payloadError reports a body that is not the expected JSON document.
type payloadError struct {
	err error
}

func (e *payloadError) Error() string { return "malformed payload: " + e.err.Error() }
func (e *payloadError) Unwrap() error { return e.err }

type poolResponse struct {
	Data *struct {
		Attributes *poolAttributes `json:"attributes"`
	} `json:"data"`
}

type poolAttributes struct {
	BaseTokenPriceUSD    json.RawMessage `json:"base_token_price_usd"`
	BaseTokenPriceNative json.RawMessage `json:"base_token_price_native_currency"`
	FDVUSD               json.RawMessage `json:"fdv_usd"`
}

func parsePool(body []byte, logger *zap.Logger) (model.MarketData, error) {
	var resp poolResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.MarketData{}, &payloadError{err: err}
	}
	if resp.Data == nil || resp.Data.Attributes == nil {
		return model.MarketData{}, nil
	}

	attrs := resp.Data.Attributes
	return model.MarketData{
		PriceUSD:    optionalDecimal("base_token_price_usd", attrs.BaseTokenPriceUSD, logger),
		PriceNative: optionalDecimal("base_token_price_native_currency", attrs.BaseTokenPriceNative, logger),
		FDVUSD:      optionalDecimal("fdv_usd", attrs.FDVUSD, logger),
	}, nil
}

// optionalDecimal accepts a JSON number or numeric string. Missing, null,
// empty or unparsable values are absent.
func optionalDecimal(field string, raw json.RawMessage, logger *zap.Logger) *decimal.Decimal {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			logger.Debug("market field not a string", zap.String("field", field), zap.Error(err))
			return nil
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return nil
		}
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		logger.Debug("market field not numeric", zap.String("field", field), zap.String("value", text), zap.Error(err))
		return nil
	}
	return &value
}

func failureKind(err error) string {
	var payloadErr *payloadError
	switch {
	case errors.Is(err, errPoolNotIndexed):
		return "not_indexed"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.As(err, &payloadErr):
		return "malformed_payload"
	default:
		return "transport"
	}
}
