// Package netx is the outbound HTTP client used for third-party APIs. Each
// upstream gets its own circuit breaker; requests are never retried.
package netx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/sony/gobreaker"
)

const maxErrorBody = 512

// Observer is told the outcome ("ok", "status", "error", "open") of every call.
type Observer func(upstream, outcome string)

// Client fetches JSON from one upstream.
type Client struct {
	name     string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker
	logger   logging.Logger
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithHTTPClient replaces the underlying *http.Client; its Timeout is kept.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient returns a client whose every request is bounded by timeout.
// Five consecutive transport errors or 5xx answers open the breaker for
// thirty seconds; 4xx answers do not count as failures.
func NewClient(name string, timeout time.Duration, logger logging.Logger, opts ...Option) *Client {
	c := &Client{
		name:     name,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With("module", "upstream", "upstream", name),
		observer: func(string, string) {},
	}
	for _, o := range opts {
		o(c)
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var ue *common.UpstreamError
			return err == nil || (errors.As(err, &ue) && ue.StatusCode < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn(context.Background(), "circuit breaker state", "from", from.String(), "to", to.String())
		},
	})
	return c
}

// GetJSON issues GET rawURL?query and decodes a 2xx body into out.
// A non-2xx answer yields *common.UpstreamError; transport failures,
// timeouts and an open breaker are wrapped in common.ErrorUpstream.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: bad url: %v", common.ErrorUpstream, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, u.String(), out)
	})

	switch {
	case err == nil:
		c.observer(c.name, "ok")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.observer(c.name, "open")
		return fmt.Errorf("%w: %s: %v", common.ErrorUpstream, c.name, err)
	}

	var ue *common.UpstreamError
	if errors.As(err, &ue) {
		c.observer(c.name, "status")
	} else {
		c.observer(c.name, "error")
		c.logger.Warn(ctx, "upstream call failed", "error", err)
	}
	return err
}

func (c *Client) do(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrorUpstream, c.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrorUpstream, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &common.UpstreamError{Upstream: c.name, StatusCode: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", common.ErrorUpstream, c.name, err)
	}
	return nil
}
