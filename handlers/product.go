package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/catalog"
)

type ProductHandler struct {
	catalog *catalog.Service
	logger  *zap.Logger
}

func NewProductHandler(catalog *catalog.Service, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

func (h *ProductHandler) GetProducts(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "GetProducts")
	defer span.End()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "12"))
	category := c.Query("category")
	search := c.Query("search")

	span.SetAttributes(
		attribute.String("catalog.category", category),
		attribute.Int("catalog.page", page),
	)

	result, err := h.catalog.ListProducts(ctx, category, page, pageSize, search)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("products.count", len(result.Items)))
	c.JSON(http.StatusOK, result)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "GetProduct")
	defer span.End()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}
	span.SetAttributes(attribute.Int("product.id", id))

	product, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProductBySlug(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "GetProductBySlug")
	defer span.End()

	slug := c.Param("slug")
	span.SetAttributes(attribute.String("product.slug", slug))

	product, err := h.catalog.GetBySlug(ctx, slug)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}
