// Package reconcile routes cart mutations between the local and server cart
// stores and merges them when a session becomes authenticated.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
)

// State is the session state of a Reconciler.
type State int

const (
	Anonymous State = iota
	Reconciling
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Reconciling:
		return "reconciling"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrReconciling is returned for mutations issued while a merge is running.
var ErrReconciling = errors.New("cart merge in progress")

// Local is the client-side cart store.
type Local interface {
	Load(ctx context.Context) domain.Cart
	Save(ctx context.Context, cart domain.Cart)
}

// Remote is the server-side cart store.
type Remote interface {
	GetOrCreateActiveCart(ctx context.Context) (domain.Cart, error)
	AddItem(ctx context.Context, productID string, quantity int) (domain.Cart, error)
	UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, cartID, productID string) (domain.Cart, error)
	Clear(ctx context.Context, cartID string) (domain.Cart, error)
	Sync(ctx context.Context, local domain.Cart) (domain.Cart, error)
}

// Catalog reads current product stock.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// Reconciler holds the displayed cart. The displayed cart only changes after
// an operation succeeds.
type Reconciler struct {
	local   Local
	remote  Remote
	catalog Catalog
	state   State
	cart    domain.Cart
	logger  *zap.Logger
}

func New(local Local, remote Remote, catalog Catalog, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		local:   local,
		remote:  remote,
		catalog: catalog,
		state:   Anonymous,
		logger:  logging.OrNop(logger).Named("reconcile"),
	}
}

// Start displays the locally stored cart.
func (r *Reconciler) Start(ctx context.Context) domain.Cart {
	r.cart = r.local.Load(ctx)
	return r.cart
}

// Resume enters Authenticated for a session that was already merged and
// refreshes the displayed cart from the server. On failure the state is
// left unchanged.
func (r *Reconciler) Resume(ctx context.Context) (domain.Cart, error) {
	server, err := r.remote.GetOrCreateActiveCart(ctx)
	if err != nil {
		return r.cart, err
	}
	r.state = Authenticated
	return r.display(ctx, server), nil
}

func (r *Reconciler) Cart() domain.Cart { return r.cart }

func (r *Reconciler) State() State { return r.state }

// Login runs the one-time merge for a fresh authentication. On failure the
// Reconciler stays Anonymous and the displayed cart is unchanged.
func (r *Reconciler) Login(ctx context.Context) (domain.Cart, error) {
	if r.state == Authenticated {
		return r.cart, nil
	}
	return r.Reconcile(ctx)
}

// Reconcile runs the merge. It is how a failed Login is retried.
func (r *Reconciler) Reconcile(ctx context.Context) (domain.Cart, error) {
	prev := r.state
	r.state = Reconciling

	merged, err := r.merge(ctx)
	if err != nil {
		r.state = prev
		r.logger.Warn("cart merge failed", zap.Error(err))
		return r.cart, err
	}
	r.state = Authenticated
	r.cart = merged
	return r.cart, nil
}

// Logout returns to Anonymous and displays the last local snapshot.
func (r *Reconciler) Logout(ctx context.Context) domain.Cart {
	r.state = Anonymous
	r.cart = r.local.Load(ctx)
	return r.cart
}

func (r *Reconciler) Add(ctx context.Context, product domain.Product, quantity int) (domain.Cart, error) {
	if quantity < 1 {
		return r.cart, domain.Invalid("quantity", "must be at least 1")
	}
	switch r.state {
	case Authenticated:
		return r.remoteCall(ctx, func() (domain.Cart, error) {
			return r.remote.AddItem(ctx, product.ID, quantity)
		})
	case Anonymous:
		existing := 0
		if line, ok := r.cart.Line(product.ID); ok {
			existing = line.Quantity
		}
		if err := product.CheckStock(existing + quantity); err != nil {
			return r.cart, err
		}
		return r.localCommit(ctx, domain.AddLine(r.cart.Lines, product, quantity, r.cart.ID)), nil
	}
	return r.cart, ErrReconciling
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (r *Reconciler) UpdateQuantity(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	if quantity < 0 {
		return r.cart, domain.Invalid("quantity", "must not be negative")
	}
	switch r.state {
	case Authenticated:
		cartID := r.cart.ID
		return r.remoteCall(ctx, func() (domain.Cart, error) {
			return r.remote.UpdateQuantity(ctx, cartID, productID, quantity)
		})
	case Anonymous:
		if quantity == 0 {
			return r.localCommit(ctx, domain.RemoveLine(r.cart.Lines, productID)), nil
		}
		line, ok := r.cart.Line(productID)
		if !ok {
			return r.cart, fmt.Errorf("%w: product %s is not in the cart", domain.ErrNotFound, productID)
		}
		if err := line.Product.CheckStock(quantity); err != nil {
			return r.cart, err
		}
		return r.localCommit(ctx, domain.SetLineQuantity(r.cart.Lines, productID, quantity)), nil
	}
	return r.cart, ErrReconciling
}

func (r *Reconciler) Remove(ctx context.Context, productID string) (domain.Cart, error) {
	switch r.state {
	case Authenticated:
		cartID := r.cart.ID
		return r.remoteCall(ctx, func() (domain.Cart, error) {
			return r.remote.RemoveItem(ctx, cartID, productID)
		})
	case Anonymous:
		return r.localCommit(ctx, domain.RemoveLine(r.cart.Lines, productID)), nil
	}
	return r.cart, ErrReconciling
}

func (r *Reconciler) Clear(ctx context.Context) (domain.Cart, error) {
	switch r.state {
	case Authenticated:
		cartID := r.cart.ID
		return r.remoteCall(ctx, func() (domain.Cart, error) {
			return r.remote.Clear(ctx, cartID)
		})
	case Anonymous:
		return r.localCommit(ctx, nil), nil
	}
	return r.cart, ErrReconciling
}

func (r *Reconciler) merge(ctx context.Context) (domain.Cart, error) {
	server, err := r.remote.GetOrCreateActiveCart(ctx)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("fetch server cart: %w", err)
	}
	local := r.local.Load(ctx)

	// An existing server cart wins over local content.
	if !server.IsEmpty() || local.IsEmpty() {
		if !local.IsEmpty() {
			r.logger.Info("discarding local cart lines", zap.Int("lines", len(local.Lines)), zap.String("cart_id", server.ID))
		}
		r.local.Save(ctx, server)
		return server, nil
	}

	lines, err := r.admissibleLines(ctx, local.Lines)
	if err != nil {
		return domain.Cart{}, err
	}
	if len(lines) == 0 {
		r.local.Save(ctx, server)
		return server, nil
	}

	synced, err := r.remote.Sync(ctx, server.WithLines(lines))
	if err != nil {
		return domain.Cart{}, fmt.Errorf("sync local cart: %w", err)
	}
	r.local.Save(ctx, local.WithLines(nil))
	r.logger.Info("local cart pushed to server", zap.String("cart_id", synced.ID), zap.Int("lines", len(synced.Lines)))
	return synced, nil
}

// admissibleLines re-reads every line's product and keeps the lines current
// stock still admits.
func (r *Reconciler) admissibleLines(ctx context.Context, lines []domain.CartLine) ([]domain.CartLine, error) {
	out := make([]domain.CartLine, 0, len(lines))
	for _, l := range lines {
		p, err := r.catalog.GetProduct(ctx, l.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("dropping line for unknown product", zap.String("product_id", l.ProductID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("check product %s: %w", l.ProductID, err)
		}
		if err := p.CheckStock(l.Quantity); err != nil {
			r.logger.Warn("dropping line", zap.String("product_id", l.ProductID), zap.Error(err))
			continue
		}
		l.Product = p
		out = append(out, l)
	}
	return out, nil
}

func (r *Reconciler) remoteCall(ctx context.Context, call func() (domain.Cart, error)) (domain.Cart, error) {
	next, err := call()
	if err != nil {
		return r.cart, err
	}
	return r.display(ctx, next), nil
}

func (r *Reconciler) localCommit(ctx context.Context, lines []domain.CartLine) domain.Cart {
	next := r.cart.WithLines(lines)
	r.local.Save(ctx, next)
	r.cart = next
	return next
}

func (r *Reconciler) display(ctx context.Context, cart domain.Cart) domain.Cart {
	cart = cart.Recalculated()
	r.local.Save(ctx, cart)
	r.cart = cart
	return cart
}
