package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	productsvc "github.com/natededev/de-commerce/internal/service/product"
)

type productHandlers struct {
	svc    ProductService
	logger *zap.Logger
}

func (h *productHandlers) list(c *gin.Context) {
	filter, err := parseProductFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	page, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, page, "")
}

func (h *productHandlers) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, p, "")
}

func (h *productHandlers) create(c *gin.Context) {
	var in productsvc.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, p, "product created")
}

func (h *productHandlers) update(c *gin.Context) {
	var in productsvc.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, p, "product updated")
}

func (h *productHandlers) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, nil, "product deleted")
}

func parseProductFilter(c *gin.Context) (domain.ProductFilter, error) {
	var f domain.ProductFilter
	var err error
	if f.Page, err = intQuery(c, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		return f, err
	}
	f.Category = strings.TrimSpace(c.Query("category"))
	f.Search = strings.TrimSpace(c.Query("search"))
	if f.MinPrice, err = decimalQuery(c, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = decimalQuery(c, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.Invalid(key, "must be a non-negative integer")
	}
	return n, nil
}

func decimalQuery(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, domain.Invalid(key, "must be a non-negative number")
	}
	return &d, nil
}

type categoryHandlers struct {
	svc    CategoryService
	logger *zap.Logger
}

func (h *categoryHandlers) list(c *gin.Context) {
	names, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, names, "")
}
