package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/cart"
	"github.com/bladi23/ImportadoraSonib/catalog"
	"github.com/bladi23/ImportadoraSonib/identity"
	"github.com/bladi23/ImportadoraSonib/models"
	"github.com/bladi23/ImportadoraSonib/orders"
)

type CartHandler struct {
	store   *cart.Store
	catalog *catalog.Service
	tracker orders.EventTracker
	logger  *zap.Logger
}

func NewCartHandler(store *cart.Store, catalog *catalog.Service, tracker orders.EventTracker, logger *zap.Logger) *CartHandler {
	return &CartHandler{store: store, catalog: catalog, tracker: tracker, logger: logger}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "GetCart")
	defer span.End()

	items, err := h.store.List(ctx, identity.Owner(c))
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("cart.lines", len(items)))
	c.JSON(http.StatusOK, items)
}

type addCartItemRequest struct {
	ProductID int `json:"productId" binding:"required"`
	Quantity  int `json:"quantity"`
}

func (h *CartHandler) AddItem(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "AddCartItem")
	defer span.End()

	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	span.SetAttributes(
		attribute.Int("product.id", req.ProductID),
		attribute.Int("cart.quantity", req.Quantity),
	)

	exists, err := h.catalog.Exists(ctx, req.ProductID)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	owner := identity.Owner(c)
	if err := h.store.Add(ctx, owner, req.ProductID, req.Quantity); err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}

	h.tracker.Track(models.EventAdd, req.ProductID, owner.UserID, owner.SessionID)

	c.JSON(http.StatusOK, gin.H{"message": "Item added to cart"})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "RemoveCartItem")
	defer span.End()

	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}
	span.SetAttributes(attribute.Int("product.id", productID))

	if err := h.store.Remove(ctx, identity.Owner(c), productID); err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}
