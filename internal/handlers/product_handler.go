package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/cache"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/config"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/repository"
	apperrors "github.com/Juanes-crypto/grupo-agro-backend/pkg/errors"
)

// ProductHandler serves the inventory endpoints backing the barter flow
type ProductHandler struct {
	products repository.ProductRepository
	cache    cache.Cache
	cfg      *config.Config
	logger   *zap.Logger
}

func NewProductHandler(products repository.ProductRepository, c cache.Cache, cfg *config.Config, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		cache:    c,
		cfg:      cfg,
		logger:   logger,
	}
}

// Create handles POST /api/v1/products
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateProductRequest  true  "Product"
// @Success      201      {object}  ProductResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	ownerID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid product payload", err.Error()))
		return
	}

	product := domain.NewProduct(ownerID, req.Name, req.Description, req.Category, req.Price, req.Stock, req.Unit)
	product.ImageURL = req.ImageURL
	product.Tradable = req.Tradable
	product.Perishable = req.Perishable
	product.FreshnessCertified = req.FreshnessCertified

	if err := h.products.Create(c.Request.Context(), product); err != nil {
		fail(c, err)
		return
	}

	h.invalidate(c, ownerID)
	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("owner_id", ownerID.String()),
	)
	c.JSON(http.StatusCreated, newProductResponse(product))
}

// Get handles GET /api/v1/products/:id
// @Summary      Get a product by id
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID (UUID)"
// @Success      200  {object}  ProductResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid product id", err.Error()))
		return
	}

	key := cache.ProductKey(id.String())
	var cached ProductResponse
	if err := cache.GetJSON(c.Request.Context(), h.cache, key, &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	product, err := h.products.FindByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	resp := newProductResponse(product)
	if err := cache.SetJSON(c.Request.Context(), h.cache, key, resp, cache.TTL(h.cfg.CacheTTL)); err != nil {
		h.logger.Warn("Failed to cache product", zap.Error(err))
	}
	c.JSON(http.StatusOK, resp)
}

// ListMine handles GET /api/v1/products/mine
// @Summary      List the caller's products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  ProductResponse
// @Router       /products/mine [get]
func (h *ProductHandler) ListMine(c *gin.Context) {
	ownerID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}

	key := cache.OwnerProductsKey(ownerID.String())
	var cached []ProductResponse
	if err := cache.GetJSON(c.Request.Context(), h.cache, key, &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	products, err := h.products.FindByOwner(c.Request.Context(), ownerID)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, newProductResponse(&products[i]))
	}
	if err := cache.SetJSON(c.Request.Context(), h.cache, key, out, cache.TTL(h.cfg.CacheTTL)); err != nil {
		h.logger.Warn("Failed to cache product list", zap.Error(err))
	}
	c.JSON(http.StatusOK, out)
}

// Update handles PUT /api/v1/products/:id
// @Summary      Update a product
// @Description  Only the owner may update. The write is version-guarded; a concurrent modification is reported as a dependency failure.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Product ID (UUID)"
// @Param        request  body      UpdateProductRequest  true  "Product"
// @Success      200      {object}  ProductResponse
// @Failure      403      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	ownerID, _, ok := currentUser(c)
	if !ok {
		fail(c, apperrors.NewUnauthorized("invalid user identity", ""))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid product id", err.Error()))
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid product payload", err.Error()))
		return
	}

	product, err := h.products.FindByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if product.OwnerID != ownerID {
		fail(c, apperrors.NewForbidden("only the owner may update a product", ""))
		return
	}

	expectedVersion := product.Version
	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Category = req.Category
	product.Stock = req.Stock
	product.Unit = req.Unit
	product.ImageURL = req.ImageURL
	product.Published = req.Published
	product.Tradable = req.Tradable
	product.Perishable = req.Perishable
	product.FreshnessCertified = req.FreshnessCertified
	product.Version++

	if err := h.products.Update(c.Request.Context(), product, expectedVersion); err != nil {
		fail(c, err)
		return
	}

	h.invalidate(c, ownerID)
	c.JSON(http.StatusOK, newProductResponse(product))
}

func (h *ProductHandler) invalidate(c *gin.Context, ownerID uuid.UUID) {
	ctx := c.Request.Context()
	if err := h.cache.DeleteByPattern(ctx, cache.ProductPattern); err != nil {
		h.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
	if err := h.cache.Delete(ctx, cache.OwnerProductsKey(ownerID.String())); err != nil {
		h.logger.Warn("Failed to invalidate owner product cache", zap.Error(err))
	}
}
