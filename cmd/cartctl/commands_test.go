package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natededev/de-commerce/internal/localcart"
)

// fakeAPI serves the endpoints cartctl calls with a single in-memory server
// cart.
type fakeAPI struct {
	mu      sync.Mutex
	lines   map[string]int
	syncs   int
	logouts int
}

var catalog = map[string]map[string]any{
	"p1": {"id": "p1", "name": "Kettle", "price": 10, "inStock": true, "stockCount": 5},
	"p2": {"id": "p2", "name": "Lamp", "price": 5, "inStock": true, "stockCount": 1},
}

func (f *fakeAPI) cart() map[string]any {
	items := []map[string]any{}
	for id, qty := range f.lines {
		items = append(items, map[string]any{"id": "l-" + id, "cartId": "c1", "productId": id, "quantity": qty, "product": catalog[id]})
	}
	return map[string]any{"id": "c1", "userId": "u1", "status": "active", "items": items}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reply := func(status int, data any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 400, "data": data, "error": "failed"})
	}
	authed := r.Header.Get("Authorization") == "Bearer jwt"

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		reply(http.StatusOK, map[string]any{"token": "jwt", "expiresIn": 3600, "user": map[string]any{"id": "u1", "email": "user@gmail.com"}})
	case strings.HasPrefix(r.URL.Path, "/api/products/"):
		p, ok := catalog[strings.TrimPrefix(r.URL.Path, "/api/products/")]
		if !ok {
			reply(http.StatusNotFound, nil)
			return
		}
		reply(http.StatusOK, p)
	case !authed:
		reply(http.StatusUnauthorized, nil)
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout":
		f.logouts++
		reply(http.StatusOK, nil)
	case r.Method == http.MethodGet && r.URL.Path == "/api/cart":
		reply(http.StatusOK, f.cart())
	case r.Method == http.MethodPost && r.URL.Path == "/api/cart/sync":
		var body struct {
			Items []struct {
				ProductID string `json:"productId"`
				Quantity  int    `json:"quantity"`
			} `json:"items"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.syncs++
		f.lines = map[string]int{}
		for _, it := range body.Items {
			f.lines[it.ProductID] += it.Quantity
		}
		reply(http.StatusOK, f.cart())
	case r.Method == http.MethodPost && r.URL.Path == "/api/cart":
		var body struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lines[body.ProductID] += body.Quantity
		reply(http.StatusCreated, f.cart())
	default:
		reply(http.StatusNotFound, nil)
	}
}

func run(t *testing.T, api, store string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DECOMMERCE_CONFIG_FILE", "")
	t.Setenv("CART_STORE_REDIS_ADDR", "")
	t.Setenv("REQUEST_MAX_RETRIES", "0")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--api", api, "--store-dir", store, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestAnonymousCartThenLoginMerge(t *testing.T) {
	fake := &fakeAPI{lines: map[string]int{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	api := srv.URL + "/api"
	store := t.TempDir()

	out, err := run(t, api, store, "add", "p1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 20.00")

	out, err = run(t, api, store, "add", "p2")
	require.NoError(t, err)
	assert.Contains(t, out, "Items: 3  Total: 25.00")

	_, err = run(t, api, store, "add", "p2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Lamp")

	out, err = run(t, api, store, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: anonymous")
	assert.Contains(t, out, "Total: 25.00")

	out, err = run(t, api, store, "login", "user@gmail.com", "demo123456")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as user@gmail.com")
	assert.Contains(t, out, "Total: 25.00")
	assert.Equal(t, 1, fake.syncs)
	assert.Equal(t, map[string]int{"p1": 2, "p2": 1}, fake.lines)

	out, err = run(t, api, store, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: authenticated")
	assert.Equal(t, 1, fake.syncs)

	out, err = run(t, api, store, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 25.00")
	assert.Equal(t, 1, fake.logouts)

	out, err = run(t, api, store, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: anonymous")
}

func TestAddRejectsBadQuantity(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{lines: map[string]int{}})
	t.Cleanup(srv.Close)

	_, err := run(t, srv.URL+"/api", t.TempDir(), "add", "p1", "zero")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")
}

func saveSession(t *testing.T, store string, sess localcart.Session) *localcart.SessionStore {
	t.Helper()
	kv, err := localcart.NewFileKV(store)
	require.NoError(t, err)
	sessions := localcart.NewSessionStore(kv)
	require.NoError(t, sessions.Save(context.Background(), sess))
	return sessions
}

func TestRejectedUnmergedSessionSignsOut(t *testing.T) {
	fake := &fakeAPI{lines: map[string]int{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	store := t.TempDir()
	sessions := saveSession(t, store, localcart.Session{
		Token:     "revoked",
		Email:     "user@gmail.com",
		ExpiresAt: time.Now().Add(time.Hour),
	})

	out, err := run(t, srv.URL+"/api", store, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: anonymous")

	_, ok, err := sessions.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, fake.syncs)
}

func TestUnreachableServerDefersMergeAndAllowsLogout(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{lines: map[string]int{}})
	api := srv.URL + "/api"
	srv.Close()
	store := t.TempDir()
	sessions := saveSession(t, store, localcart.Session{
		Token:     "jwt",
		Email:     "user@gmail.com",
		ExpiresAt: time.Now().Add(time.Hour),
	})

	out, err := run(t, api, store, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: anonymous")
	_, ok, err := sessions.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "session kept so the merge is retried")

	_, err = run(t, api, store, "logout")
	require.NoError(t, err)
	_, ok, err = sessions.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
