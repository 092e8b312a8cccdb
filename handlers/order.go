package handlers

import (
	"net/http"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/identity"
	"github.com/bladi23/ImportadoraSonib/kafka"
	"github.com/bladi23/ImportadoraSonib/middleware"
	"github.com/bladi23/ImportadoraSonib/models"
	"github.com/bladi23/ImportadoraSonib/orders"
)

type OrderHandler struct {
	engine   *orders.Engine
	producer sarama.SyncProducer
	logger   *zap.Logger
}

func NewOrderHandler(engine *orders.Engine, producer sarama.SyncProducer, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{engine: engine, producer: producer, logger: logger}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	owner := identity.Owner(c)
	order, err := h.engine.CreateOrder(ctx, owner, req.Items)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}

	span.SetAttributes(
		attribute.Int("order.id", order.ID),
		attribute.Int("order.lines", len(order.Items)),
	)
	middleware.RecordOrderCreated()

	event := models.OrderEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Total:     order.Total.StringFixed(2),
		LineCount: len(order.Items),
		EventType: models.OrderEventCreated,
	}
	if err := kafka.PublishOrderEvent(ctx, h.producer, kafka.OrderEventsTopic, event, h.logger); err != nil {
		// Don't fail the request, but log the error
		h.logger.Error("Failed to publish order_created event", zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":       order,
		"whatsappUrl": orders.BuildOrderLink(order.ID, order.Items, order.Total),
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}
	span.SetAttributes(attribute.Int("order.id", id))

	order, err := h.engine.GetOrder(ctx, id)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
