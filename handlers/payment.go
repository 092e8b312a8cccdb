package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/kafka"
	"github.com/bladi23/ImportadoraSonib/middleware"
	"github.com/bladi23/ImportadoraSonib/models"
	"github.com/bladi23/ImportadoraSonib/orders"
)

type PaymentHandler struct {
	engine   *orders.Engine
	producer sarama.SyncProducer
	logger   *zap.Logger
}

func NewPaymentHandler(engine *orders.Engine, producer sarama.SyncProducer, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{engine: engine, producer: producer, logger: logger}
}

type createSessionRequest struct {
	OrderID int `json:"orderId" binding:"required"`
}

func (h *PaymentHandler) CreateSession(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "CreateCheckoutSession")
	defer span.End()

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	span.SetAttributes(attribute.Int("order.id", req.OrderID))

	session, err := h.engine.CreateDemoSession(ctx, req.OrderID)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type confirmRequest struct {
	OrderID   int    `json:"orderId" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
	Outcome   string `json:"outcome" binding:"required"`
}

func (h *PaymentHandler) Confirm(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "ConfirmPayment")
	defer span.End()

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	span.SetAttributes(
		attribute.Int("order.id", req.OrderID),
		attribute.String("payment.outcome", req.Outcome),
	)

	result, err := h.engine.Confirm(ctx, req.OrderID, req.SessionID, req.Outcome)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, models.ErrConcurrencyConflict) {
			middleware.RecordStockConflict()
		}
		writeError(c, h.logger, err)
		return
	}

	middleware.RecordPaymentConfirmed(req.Outcome)

	if result.Applied {
		eventType := models.OrderEventPaid
		if result.Status == models.OrderStatusCancelled {
			eventType = models.OrderEventCancelled
		}
		event := models.OrderEvent{
			OrderID:   result.OrderID,
			Status:    result.Status,
			EventType: eventType,
		}
		if err := kafka.PublishOrderEvent(ctx, h.producer, kafka.OrderEventsTopic, event, h.logger); err != nil {
			// Don't fail the request, but log the error
			h.logger.Error("Failed to publish payment event", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	ctx, span := otel.Tracer("importadora-sonib").Start(c.Request.Context(), "GetPaymentStatus")
	defer span.End()

	orderID, err := strconv.Atoi(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}
	span.SetAttributes(attribute.Int("order.id", orderID))

	order, err := h.engine.GetOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orderId":  order.ID,
		"status":   order.Status,
		"provider": order.PaymentProvider,
		"paidAt":   order.PaidAt,
	})
}
