package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/reco"
)

type RecoHandler struct {
	service *reco.Service
	logger  *zap.Logger
}

func NewRecoHandler(service *reco.Service, logger *zap.Logger) *RecoHandler {
	return &RecoHandler{service: service, logger: logger}
}

func (h *RecoHandler) Popular(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "RecoPopular")
	defer span.End()

	take, _ := strconv.Atoi(c.Query("take"))
	windowDays, _ := strconv.Atoi(c.Query("windowDays"))

	cards, err := h.service.Popular(ctx, take, windowDays)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("reco.count", len(cards)))
	c.JSON(http.StatusOK, cards)
}

func (h *RecoHandler) AlsoBought(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "RecoAlsoBought")
	defer span.End()

	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}
	take, _ := strconv.Atoi(c.Query("take"))
	span.SetAttributes(attribute.Int("product.id", productID))

	cards, err := h.service.AlsoBought(ctx, productID, take)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *RecoHandler) PopularInCategory(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "RecoPopularInCategory")
	defer span.End()

	categoryID, err := strconv.Atoi(c.Param("categoryId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
		return
	}
	take, _ := strconv.Atoi(c.Query("take"))
	span.SetAttributes(attribute.Int("category.id", categoryID))

	cards, err := h.service.PopularInCategory(ctx, categoryID, take)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}
