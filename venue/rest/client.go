// venue/rest/client.go
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/riskd/market"
	"github.com/rustyeddy/riskd/venue"
)

// Config holds transport settings for the REST venue client.
type Config struct {
	BaseURL        string
	Token          string
	RequestTimeout time.Duration
	// RequestsPerSecond throttles outbound commands; venues rate-limit
	// aggressively during the exact volatility spikes that trigger
	// enforcement.
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the venue's REST API. Every call goes through a rate
// limiter and a circuit breaker so a dead venue fails fast instead of
// stalling the per-account event lanes.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

// NewClient creates a venue client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Burst == 0 {
		cfg.Burst = 10
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "venue",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("venue circuit breaker state change")
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:    breaker,
		log:        log,
	}
}

var _ venue.Venue = (*Client)(nil)

func (c *Client) ClosePosition(ctx context.Context, accountID, contractID string) error {
	path := fmt.Sprintf("/v1/accounts/%s/positions/%s/close", accountID, contractID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) CancelOrder(ctx context.Context, accountID, orderID string) error {
	path := fmt.Sprintf("/v1/accounts/%s/orders/%s/cancel", accountID, orderID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) SearchOpenPositions(ctx context.Context, accountID string) ([]market.Position, error) {
	var out struct {
		Positions []market.Position `json:"positions"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/positions", accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Positions, nil
}

func (c *Client) SearchOpenOrders(ctx context.Context, accountID string) ([]market.Order, error) {
	var out struct {
		Orders []market.Order `json:"orders"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/orders", accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) PlaceOrder(ctx context.Context, spec venue.OrderSpec) (string, error) {
	var out struct {
		OrderID string `json:"order_id"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/orders", spec.AccountID)
	if err := c.do(ctx, http.MethodPost, path, spec, &out); err != nil {
		return "", err
	}
	return out.OrderID, nil
}

func (c *Client) ModifyOrder(ctx context.Context, accountID, orderID string, changes venue.OrderChanges) error {
	path := fmt.Sprintf("/v1/accounts/%s/orders/%s", accountID, orderID)
	return c.do(ctx, http.MethodPatch, path, changes, nil)
}

func (c *Client) ContractMetadata(ctx context.Context, contractID string) (market.ContractMetadata, error) {
	var out market.ContractMetadata
	path := fmt.Sprintf("/v1/contracts/%s", contractID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return market.ContractMetadata{}, err
	}
	return out, nil
}

// do executes one JSON request through the limiter and breaker.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("venue rate limit: %w", err)
	}

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.once(ctx, method, path, body, out)
	})
	return err
}

func (c *Client) once(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).
		Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).
		Msg("venue request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("venue error (status %d): %s", resp.StatusCode, string(payload))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
