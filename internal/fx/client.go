// Package fx fetches indicative CLP conversion rates. The rates are a
// decorative widget: any failure falls back silently to fixed
// approximations and never surfaces as an error.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gastopro/internal/log"
)

const defaultBaseURL = "https://api.exchangerate.host/latest?base=CLP&symbols=USD,EUR"

// Rates holds CLP conversion factors.
type Rates struct {
	USD float64 `json:"usd"`
	EUR float64 `json:"eur"`
}

// FallbackRates are the fixed approximations used whenever the live
// fetch fails.
var FallbackRates = Rates{USD: 0.001, EUR: 0.0009}

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// NewClient creates a client with a short timeout; a slow rate API
// must never hold up a dashboard render. An empty baseURL uses the
// public endpoint.
func NewClient(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger.WithComponent(log.ComponentFX),
	}
}

// Latest returns current rates and whether they are live. On any
// failure the fixed fallback is returned with live=false.
func (c *Client) Latest(ctx context.Context) (Rates, bool) {
	rates, err := c.fetch(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "FX fetch failed, using fallback rates", log.FieldError, err)
		return FallbackRates, false
	}
	return rates, true
}

func (c *Client) fetch(ctx context.Context) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return Rates{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Rates{}, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Rates{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Rates struct {
			USD float64 `json:"USD"`
			EUR float64 `json:"EUR"`
		} `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Rates{}, fmt.Errorf("decode rates: %w", err)
	}
	if payload.Rates.USD <= 0 || payload.Rates.EUR <= 0 {
		return Rates{}, fmt.Errorf("missing rates in response")
	}

	return Rates{USD: payload.Rates.USD, EUR: payload.Rates.EUR}, nil
}
