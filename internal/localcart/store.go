// Package localcart persists the anonymous session's cart under a fixed key.
package localcart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
)

// Key is the storage slot owned by the local cart.
const Key = "de-commerce:cart"

// Store loads and saves one Cart. Persistence failures never reach callers:
// the in-memory cart stays authoritative for the session.
type Store struct {
	kv     KV
	key    string
	logger *zap.Logger
}

func NewStore(kv KV, logger *zap.Logger) *Store {
	return &Store{kv: kv, key: Key, logger: logging.OrNop(logger).Named("localcart")}
}

// NewLocalCart returns an empty anonymous cart with a synthetic id.
func NewLocalCart() domain.Cart {
	return domain.EmptyCart("local-"+uuid.NewString(), domain.AnonymousUserID)
}

// Load returns the persisted cart, or a fresh empty cart when the slot is
// absent, unreadable or not shaped like a cart.
func (s *Store) Load(ctx context.Context) domain.Cart {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("read local cart", zap.Error(err))
		}
		return NewLocalCart()
	}
	cart, ok := decode(data)
	if !ok {
		s.logger.Warn("discarding malformed local cart", zap.Int("bytes", len(data)))
		return NewLocalCart()
	}
	return cart
}

// Save persists cart. Errors are logged and swallowed.
func (s *Store) Save(ctx context.Context, cart domain.Cart) {
	data, err := json.Marshal(cart)
	if err != nil {
		s.logger.Warn("encode local cart", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		s.logger.Warn("save local cart", zap.String("cart_id", cart.ID), zap.Error(err))
	}
}

// Clear removes the persisted cart.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.logger.Warn("clear local cart", zap.Error(err))
	}
}

func decode(data []byte) (domain.Cart, bool) {
	var shape struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return domain.Cart{}, false
	}
	if !bytes.HasPrefix(bytes.TrimSpace(shape.Items), []byte("[")) {
		return domain.Cart{}, false
	}
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return domain.Cart{}, false
	}

	// Duplicate lines for one product are folded into the first.
	lines := make([]domain.CartLine, 0, len(cart.Lines))
	seen := make(map[string]int, len(cart.Lines))
	for _, l := range cart.Lines {
		if l.ProductID == "" {
			l.ProductID = l.Product.ID
		}
		if strings.TrimSpace(l.ProductID) == "" || l.Quantity < 1 {
			continue
		}
		if i, ok := seen[l.ProductID]; ok {
			lines[i].Quantity += l.Quantity
			continue
		}
		seen[l.ProductID] = len(lines)
		lines = append(lines, l)
	}
	cart.Lines = lines
	if cart.ID == "" {
		cart.ID = "local-" + uuid.NewString()
	}
	if cart.UserID == "" {
		cart.UserID = domain.AnonymousUserID
	}
	if cart.Status == "" {
		cart.Status = domain.CartStatusActive
	}
	return cart.Recalculated(), true
}
