// Package phemex implements the signed HTTP adapter for Phemex's
// perpetual-futures REST API (spec.md §4.1 "Exchange Adapter"): request
// signing, rate limiting, and retry compose around a resty client, and
// every public method maps wire shapes into the engine's domain types at
// the boundary — scaled "ep" integers and JSON envelopes never leak
// upward.
package phemex

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/engine"
	"phemex-martingale-bot/internal/indicator"
	"phemex-martingale-bot/internal/metrics"
)

const expiryWindow = 5 * time.Second

// unknownSymbolCode is the envelope code Phemex returns when a request
// references a symbol it does not recognise (spec.md §4.1 documents
// UnknownSymbol as a failure mode of GetPosition/GetTicker).
const unknownSymbolCode = 39998

// Client is the Phemex REST adapter. One Client is shared across every
// instrument processed in a tick; its rate limiter is the only mutable
// state that must be concurrency-safe (spec.md §5 "Shared resources").
type Client struct {
	key, secret, base string
	rest              *resty.Client
	limiter           *Limiter
	metrics           *metrics.Metrics
}

// New builds a Client against base, authenticating with key/secret,
// bounding every HTTP call at timeout, and admitting requests through a
// token bucket sized rps/burst (spec.md §4.1 "Rate limiting"). m may be
// nil, in which case adapter retries and rate-limit wait times are not
// observed.
func New(key, secret, base string, timeout time.Duration, rps float64, burst int, m *metrics.Metrics) *Client {
	r := resty.New().SetTimeout(timeout)
	return &Client{
		key:     key,
		secret:  secret,
		base:    base,
		rest:    r,
		limiter: NewLimiter(rps, burst, m),
		metrics: m,
	}
}

type envelope struct {
	Code int             `json:"code"`
	Msg   string         `json:"msg"`
	Data  json.RawMessage `json:"data"`
}

// doRequest signs, rate-limits, and executes a single HTTP round trip,
// decoding the envelope's data field into out. It does not retry; retry
// is the caller's responsibility via withRetry, matching the "rate
// limiter innermost, retry outermost" middleware ordering (spec.md §9).
func (c *Client) doRequest(ctx context.Context, method, path string, query map[string]string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	expiry := strconv.FormatInt(time.Now().Add(expiryWindow).Unix(), 10)

	var bodyStr string
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encoding request body: %v", ErrValidation, err)
		}
		bodyStr = string(b)
	}

	sig := Sign(c.secret, c.key, expiry, query, bodyStr)

	req := c.rest.R().
		SetContext(ctx).
		SetHeader("x-phemex-access-token", c.key).
		SetHeader("x-phemex-request-expiry", expiry).
		SetHeader("x-phemex-request-signature", sig).
		SetQueryParams(query)

	if body != nil {
		req = req.SetBody(bodyStr)
	}

	env := &envelope{}
	req = req.SetResult(env)

	resp, err := req.Execute(method, c.base+path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransientIO, err)
	}

	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode())
	case resp.StatusCode() == 429 || resp.StatusCode() >= 500:
		return fmt.Errorf("%w: status %d", ErrTransientIO, resp.StatusCode())
	case resp.StatusCode() >= 400:
		return fmt.Errorf("%w: status %d body %s", ErrValidation, resp.StatusCode(), resp.String())
	}

	if env.Code == unknownSymbolCode {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, env.Msg)
	}
	if env.Code != 0 {
		return fmt.Errorf("%w: phemex code %d: %s", ErrValidation, env.Code, env.Msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrValidation, err)
		}
	}
	return nil
}

// GetPosition returns the current position for symbol, possibly absent
// (spec.md §4.1).
func (c *Client) GetPosition(ctx context.Context, symbol string) (engine.Position, error) {
	var position engine.Position
	err := withRetry(ctx, c.metrics, func() error {
		var wire positionWire
		if err := c.doRequest(ctx, "GET", "/g-accounts/accountPositions", map[string]string{"symbol": symbol}, nil, &wire); err != nil {
			return err
		}
		domain, convErr := wire.toDomain()
		if convErr != nil {
			return convErr
		}
		position = domain
		return nil
	})
	return position, err
}

// GetTicker returns bid/ask/last for symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (bestBid, bestAsk, lastPrice decimal.Decimal, err error) {
	err = withRetry(ctx, c.metrics, func() error {
		var wire struct {
			BidEp  int64 `json:"bidEp"`
			AskEp  int64 `json:"askEp"`
			LastEp int64 `json:"lastEp"`
		}
		if reqErr := c.doRequest(ctx, "GET", "/md/ticker/24hr", map[string]string{"symbol": symbol}, nil, &wire); reqErr != nil {
			return reqErr
		}
		bestBid = epToDecimal(wire.BidEp)
		bestAsk = epToDecimal(wire.AskEp)
		lastPrice = epToDecimal(wire.LastEp)
		return nil
	})
	return bestBid, bestAsk, lastPrice, err
}

// GetCandles returns limit candles at intervalMinutes resolution, oldest
// first.
func (c *Client) GetCandles(ctx context.Context, symbol string, intervalMinutes, limit int) ([]indicator.Candle, error) {
	var candles []indicator.Candle
	err := withRetry(ctx, c.metrics, func() error {
		var wires []candleWire
		query := map[string]string{
			"symbol":     symbol,
			"resolution": strconv.Itoa(intervalMinutes * 60),
			"limit":      strconv.Itoa(limit),
		}
		if err := c.doRequest(ctx, "GET", "/md/kline", query, nil, &wires); err != nil {
			return err
		}
		out := make([]indicator.Candle, len(wires))
		for i, w := range wires {
			out[i] = w.toDomain()
		}
		candles = out
		return nil
	})
	return candles, err
}

// GetEquity returns total and available equity in USD.
func (c *Client) GetEquity(ctx context.Context) (total, available decimal.Decimal, err error) {
	err = withRetry(ctx, c.metrics, func() error {
		var wire accountWire
		if reqErr := c.doRequest(ctx, "GET", "/g-accounts/accountBalance", nil, nil, &wire); reqErr != nil {
			return reqErr
		}
		t, a, convErr := wire.toDomain()
		if convErr != nil {
			return convErr
		}
		total, available = t, a
		return nil
	})
	return total, available, err
}

// SetLeverage sets leverage for symbol/side.
func (c *Client) SetLeverage(ctx context.Context, symbol string, side cfg.Side, leverage int) error {
	if leverage <= 0 {
		return fmt.Errorf("%w: leverage must be positive", ErrValidation)
	}
	return withRetry(ctx, c.metrics, func() error {
		body := map[string]any{
			"symbol":     symbol,
			"leverageRr": leverage,
			"side":       sideWire(side),
		}
		return c.doRequest(ctx, "PUT", "/g-positions/leverage", nil, body, nil)
	})
}

// CancelAllOpen cancels every open order on symbol and returns the count
// cancelled.
func (c *Client) CancelAllOpen(ctx context.Context, symbol string) (int, error) {
	var cancelled int
	err := withRetry(ctx, c.metrics, func() error {
		var wire struct {
			Cancelled int `json:"cancelledCount"`
		}
		if reqErr := c.doRequest(ctx, "DELETE", "/g-orders/all", map[string]string{"symbol": symbol}, nil, &wire); reqErr != nil {
			return reqErr
		}
		cancelled = wire.Cancelled
		return nil
	})
	return cancelled, err
}

// PlaceLimit places a limit order and returns the exchange order id. A
// single client order id is generated once, before the first attempt,
// and reused across every retry attempt: Phemex treats clOrdID as an
// idempotency key, so a retried request after a timed-out-but-accepted
// first attempt returns the original order instead of creating a
// duplicate (grounded on the teacher's per-order UUID client-order-id
// pattern).
func (c *Client) PlaceLimit(ctx context.Context, symbol string, side cfg.Side, qty, limitPrice decimal.Decimal, reduceOnly bool) (string, error) {
	if qty.Sign() <= 0 {
		return "", fmt.Errorf("%w: qty must be positive", ErrValidation)
	}
	if limitPrice.Sign() <= 0 {
		return "", fmt.Errorf("%w: limitPrice must be positive", ErrValidation)
	}

	clOrdID := uuid.New().String()

	var orderID string
	err := withRetry(ctx, c.metrics, func() error {
		body := map[string]any{
			"symbol":     symbol,
			"side":       sideWire(side),
			"orderType":  "Limit",
			"qty":        qty.String(),
			"priceEp":    decimalToEp(limitPrice),
			"reduceOnly": reduceOnly,
			"clOrdID":    clOrdID,
		}
		var wire struct {
			OrderID string `json:"orderID"`
		}
		if reqErr := c.doRequest(ctx, "POST", "/g-orders/create", nil, body, &wire); reqErr != nil {
			return reqErr
		}
		orderID = wire.OrderID
		return nil
	})
	return orderID, err
}

// ClosePosition fully closes the open position on symbol at market.
func (c *Client) ClosePosition(ctx context.Context, symbol string) error {
	return withRetry(ctx, c.metrics, func() error {
		body := map[string]any{"symbol": symbol, "closeAll": true}
		return c.doRequest(ctx, "POST", "/g-positions/close", nil, body, nil)
	})
}

// GetEma fetches period*3 recent candles and computes the standard
// exponential moving average over their closes (spec.md §4.1 "EMA
// derivation").
func (c *Client) GetEma(ctx context.Context, symbol string, period, intervalMinutes int) (decimal.Decimal, error) {
	candles, err := c.GetCandles(ctx, symbol, intervalMinutes, period*3)
	if err != nil {
		return decimal.Zero, err
	}
	closes := make([]decimal.Decimal, len(candles))
	for i, cndl := range candles {
		closes[i] = cndl.Close
	}
	ema, err := indicator.EMA(closes, period)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInsufficientData, err)
	}
	return ema, nil
}

func sideWire(side cfg.Side) string {
	if side == cfg.Short {
		return "Sell"
	}
	return "Buy"
}
