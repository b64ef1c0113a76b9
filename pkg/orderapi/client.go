package orderapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
)

type ClientConfig struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"http://127.0.0.1:8001"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

var _ contractx.OrderLookup = (*Client)(nil)

// Client looks orders up on the order API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("order api base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse order api base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Lookup(ctx context.Context, orderID string) (contractx.OrderRecord, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return contractx.OrderRecord{}, fmt.Errorf("%w: order id is empty", contractx.ErrOrderLookup)
	}

	var rec contractx.OrderRecord
	if err := c.getJSON(ctx, "/orders/"+url.PathEscape(id), &rec); err != nil {
		return contractx.OrderRecord{}, err
	}
	return rec, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", contractx.ErrOrderLookup, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrOrderLookup, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", contractx.ErrOrderLookup, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", contractx.ErrOrderNotFound, detailOf(body))
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: unexpected status %d: %s", contractx.ErrOrderLookup, resp.StatusCode, detailOf(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", contractx.ErrOrderLookup, err)
	}
	return nil
}

func detailOf(body []byte) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(body))
}
