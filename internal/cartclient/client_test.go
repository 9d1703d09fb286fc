package cartclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natededev/de-commerce/internal/domain"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func cartPayload(id string) map[string]any {
	return map[string]any{
		"id":     id,
		"userId": "u1",
		"status": "active",
		"items": []map[string]any{{
			"id":        "l1",
			"cartId":    id,
			"productId": "p1",
			"quantity":  2,
			"product":   map[string]any{"id": "p1", "name": "Mug", "price": 10.5, "inStock": true, "stockCount": 4},
		}},
		"total":     0,
		"itemCount": 0,
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:         srv.URL + "/api/",
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		Tokens:          StaticToken(token),
		InitialInterval: time.Millisecond,
	})
}

func TestGetOrCreateActiveCart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": cartPayload("c1")})
	}, "tok")

	cart, err := c.GetOrCreateActiveCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c1", cart.ID)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.ItemCount)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("21")))
}

func TestMissingTokenFailsBeforeRequest(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "")

	_, err := c.AddItem(context.Background(), "p1", 1)
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Zero(t, calls.Load())
}

func TestAddItemSendsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body.ProductID)
		assert.Equal(t, 2, body.Quantity)
		writeEnvelope(w, http.StatusCreated, map[string]any{"success": true, "data": cartPayload("c1")})
	}, "tok")

	cart, err := c.AddItem(context.Background(), "p1", 2)
	require.NoError(t, err)
	assert.True(t, cart.Contains("p1"))
}

func TestErrorEnvelopeMapsOntoDomainErrors(t *testing.T) {
	cases := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusBadRequest, "out_of_stock", domain.ErrOutOfStock},
		{http.StatusBadRequest, "ownership", domain.ErrOwnership},
		{http.StatusBadRequest, "validation", domain.ErrValidation},
		{http.StatusUnauthorized, "", domain.ErrNotAuthenticated},
		{http.StatusInternalServerError, "sync_failed", domain.ErrSyncFailed},
	}
	for _, tc := range cases {
		t.Run(tc.want.Error(), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				body := map[string]any{"success": false, "error": "nope"}
				if tc.code != "" {
					body["code"] = tc.code
				}
				writeEnvelope(w, tc.status, body)
			}, "tok")

			_, err := c.UpdateQuantity(context.Background(), "c1", "p1", 3)
			require.ErrorIs(t, err, tc.want)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, "nope", apiErr.Error())
		})
	}
}

func TestRetriesGatewayErrorsOnIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeEnvelope(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "busy"})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": cartPayload("c1")})
	}, "tok")

	_, err := c.GetOrCreateActiveCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesAreBounded(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusBadGateway, map[string]any{"success": false, "error": "down"})
	}, "tok")

	_, err := c.Clear(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "busy"})
	}, "tok")

	_, err := c.Sync(context.Background(), domain.EmptyCart("local", domain.AnonymousUserID))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDomainRejectionsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusBadRequest, map[string]any{"success": false, "error": "bad", "code": "ownership"})
	}, "tok")

	_, err := c.RemoveItem(context.Background(), "c1", "p1")
	require.ErrorIs(t, err, domain.ErrOwnership)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSyncSendsLines(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cart/sync", r.URL.Path)
		var body syncRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Items, 1)
		assert.Equal(t, "p1", body.Items[0].ProductID)
		assert.Equal(t, 2, body.Items[0].Quantity)
		assert.Equal(t, 2, body.ItemCount)
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": cartPayload("c1")})
	}, "tok")

	p := domain.Product{ID: "p1", Name: "Mug", Price: decimal.RequireFromString("10.50"), InStock: true, StockCount: 4}
	local := domain.EmptyCart("local", domain.AnonymousUserID)
	local = local.WithLines(domain.AddLine(nil, p, 2, local.ID))

	cart, err := c.Sync(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, "c1", cart.ID)
}

func TestLoginAndProducts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/auth/login":
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
				"user": map[string]any{"id": "u1", "email": "user@gmail.com", "role": "USER"}, "token": "jwt", "expiresIn": 3600,
			}})
		case "/api/products/p1":
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": "p1", "name": "Mug", "price": 3, "inStock": true, "stockCount": 1}})
		case "/api/products":
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"items": []any{}, "total": 0, "page": 2, "limit": 10}})
		default:
			writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "error": "route not found"})
		}
	}, "")

	s, err := c.Login(context.Background(), "user@gmail.com", "demo123456")
	require.NoError(t, err)
	assert.Equal(t, "jwt", s.Token)
	assert.Equal(t, "u1", s.User.ID)

	p, err := c.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)

	page, err := c.ListProducts(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)

	_, err = c.GetProduct(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
