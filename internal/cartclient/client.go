// Package cartclient is the HTTP adapter for the server cart store. It owns
// no state: every call maps to one authenticated request.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
)

// TokenSource supplies the bearer credential for authenticated calls. An
// empty token means no identity is established.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Options configure a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     *zap.Logger
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
}

// Client calls the cart, product and auth endpoints of the storefront API.
type Client struct {
	baseURL         string
	http            *http.Client
	tokens          TokenSource
	maxRetries      int
	initialInterval time.Duration
	logger          *zap.Logger
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	interval := opts.InitialInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		http:            hc,
		tokens:          tokens,
		maxRetries:      opts.MaxRetries,
		initialInterval: interval,
		logger:          logging.OrNop(opts.Logger).Named("cartclient"),
	}
}

// WithTokens returns a copy of c using tokens.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type syncItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type syncRequest struct {
	Items     []syncItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// Session is the result of a successful login.
type Session struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expiresIn"`
}

// ProductPage is one page of the catalog.
type ProductPage struct {
	Items []domain.Product `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (c *Client) GetOrCreateActiveCart(ctx context.Context) (domain.Cart, error) {
	return c.cartCall(ctx, http.MethodGet, "/cart", nil)
}

func (c *Client) AddItem(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	return c.cartCall(ctx, http.MethodPost, "/cart", map[string]any{"productId": productID, "quantity": quantity})
}

func (c *Client) UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) (domain.Cart, error) {
	return c.cartCall(ctx, http.MethodPut, "/cart/"+url.PathEscape(cartID)+"/"+url.PathEscape(productID), map[string]int{"quantity": quantity})
}

func (c *Client) RemoveItem(ctx context.Context, cartID, productID string) (domain.Cart, error) {
	return c.cartCall(ctx, http.MethodDelete, "/cart/"+url.PathEscape(cartID)+"/"+url.PathEscape(productID), nil)
}

func (c *Client) Clear(ctx context.Context, cartID string) (domain.Cart, error) {
	return c.cartCall(ctx, http.MethodDelete, "/cart/"+url.PathEscape(cartID), nil)
}

// Sync replaces the server cart's lines with the lines of local.
func (c *Client) Sync(ctx context.Context, local domain.Cart) (domain.Cart, error) {
	local = local.Recalculated()
	req := syncRequest{Items: make([]syncItem, 0, len(local.Lines)), Total: local.Total, ItemCount: local.ItemCount}
	for _, l := range local.Lines {
		req.Items = append(req.Items, syncItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return c.cartCall(ctx, http.MethodPost, "/cart/sync", req)
}

// GetProduct reads one catalog product. No credential is needed.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, false, &p)
	return p, err
}

// ListProducts reads one catalog page.
func (c *Client) ListProducts(ctx context.Context, page, limit int) (ProductPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out ProductPage
	err := c.do(ctx, http.MethodGet, path, nil, false, &out)
	return out, err
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, false, &s)
	return s, err
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, true, nil)
}

func (c *Client) cartCall(ctx context.Context, method, path string, body any) (domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, method, path, body, true, &cart); err != nil {
		return domain.Cart{}, err
	}
	return cart.Recalculated(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, auth bool, out any) error {
	var token string
	if auth {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
		}
		if t == "" {
			return domain.ErrNotAuthenticated
		}
		token = t
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempt := func() error {
		err := c.roundTrip(ctx, method, path, payload, token, out)
		if err == nil {
			return nil
		}
		if !idempotent(method) {
			return backoff.Permanent(err)
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	policy.MaxInterval = 5 * time.Second
	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(c.maxRetries))
	b = backoff.WithContext(b, ctx)

	return backoff.RetryNotify(attempt, b, func(err error, wait time.Duration) {
		c.logger.Warn("retrying request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, token string, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
