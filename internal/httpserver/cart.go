package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	cartsvc "github.com/natededev/de-commerce/internal/service/cart"
)

type cartHandlers struct {
	svc    CartService
	logger *zap.Logger
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

func (h *cartHandlers) get(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return
	}
	cart, err := h.svc.GetOrCreateActive(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cart, "")
}

func (h *cartHandlers) add(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, err := h.svc.AddItem(c.Request.Context(), id.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, cart, "item added to cart")
}

func (h *cartHandlers) sync(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return
	}
	var req cartsvc.SyncInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, err := h.svc.Sync(c.Request.Context(), id.UserID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cart, "")
}

func (h *cartHandlers) updateQuantity(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return
	}
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, err := h.svc.UpdateQuantity(c.Request.Context(), id.UserID, c.Param("cartId"), c.Param("productId"), *req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	msg := "cart item updated"
	if *req.Quantity == 0 {
		msg = "item removed from cart"
	}
	respond(c, http.StatusOK, cart, msg)
}

func (h *cartHandlers) remove(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return
	}
	cart, err := h.svc.RemoveItem(c.Request.Context(), id.UserID, c.Param("cartId"), c.Param("productId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cart, "item removed from cart")
}

func (h *cartHandlers) clear(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return
	}
	cart, err := h.svc.Clear(c.Request.Context(), id.UserID, c.Param("cartId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cart, "cart cleared")
}
