package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/logging"
	cartsvc "github.com/natededev/de-commerce/internal/service/cart"
	productsvc "github.com/natededev/de-commerce/internal/service/product"
	usersvc "github.com/natededev/de-commerce/internal/service/user"
)

// Deps are the services the router dispatches to.
type Deps struct {
	CartSvc     CartService
	ProductSvc  ProductService
	UserSvc     UserService
	CategorySvc CategoryService
	Verifier    Verifier
	Revocations Revocations
	CORSOrigins []string
}

type CartService interface {
	GetOrCreateActive(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, cartID, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, cartID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID, cartID string) (*domain.Cart, error)
	Sync(ctx context.Context, userID string, in cartsvc.SyncInput) (*domain.Cart, error)
}

type ProductService interface {
	List(ctx context.Context, f domain.ProductFilter) (*productsvc.Page, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in productsvc.Input) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.Input) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type CategoryService interface {
	List(ctx context.Context) ([]string, error)
}

type UserService interface {
	Register(ctx context.Context, in usersvc.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*usersvc.Session, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, in usersvc.ProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, pool *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.CartSvc == nil || deps.ProductSvc == nil || deps.UserSvc == nil || deps.Verifier == nil {
		return nil, errors.New("httpserver: missing dependencies")
	}
	logger = logging.OrNop(logger)

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestLogger(logger), recovery(logger))
	if len(deps.CORSOrigins) > 0 {
		corsMW, err := corsMiddleware(deps.CORSOrigins)
		if err != nil {
			return nil, err
		}
		router.Use(corsMW)
	}

	router.GET("/health", healthHandler)
	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(pool))

	api := router.Group("/api")
	requireAuth := authMiddleware(deps.Verifier, deps.Revocations, logger)

	auth := &authHandlers{svc: deps.UserSvc, revocations: deps.Revocations, logger: logger}
	authGroup := api.Group("/auth")
	authGroup.POST("/register", auth.register)
	authGroup.POST("/login", auth.login)
	authGroup.POST("/logout", requireAuth, auth.logout)
	authGroup.GET("/validate", requireAuth, auth.validate)
	authGroup.GET("/me", requireAuth, auth.me)
	authGroup.PUT("/profile", requireAuth, auth.updateProfile)
	authGroup.PUT("/password", requireAuth, auth.changePassword)

	products := &productHandlers{svc: deps.ProductSvc, logger: logger}
	productGroup := api.Group("/products")
	productGroup.GET("", products.list)
	if deps.CategorySvc != nil {
		categories := &categoryHandlers{svc: deps.CategorySvc, logger: logger}
		productGroup.GET("/categories", categories.list)
	}
	productGroup.GET("/:id", products.get)
	productGroup.POST("", requireAuth, adminOnly(), products.create)
	productGroup.PUT("/:id", requireAuth, adminOnly(), products.update)
	productGroup.DELETE("/:id", requireAuth, adminOnly(), products.delete)

	carts := &cartHandlers{svc: deps.CartSvc, logger: logger}
	cartGroup := api.Group("/cart", requireAuth)
	cartGroup.GET("", carts.get)
	cartGroup.POST("", carts.add)
	cartGroup.POST("/sync", carts.sync)
	cartGroup.PUT("/:cartId/:productId", carts.updateQuantity)
	cartGroup.DELETE("/:cartId/:productId", carts.remove)
	cartGroup.DELETE("/:cartId", carts.clear)

	router.NoRoute(func(c *gin.Context) {
		respondCode(c, http.StatusNotFound, CodeNotFound, "route "+c.Request.URL.Path+" not found")
	})

	return router, nil
}
