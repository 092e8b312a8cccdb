package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/middleware"
	"github.com/bladi23/ImportadoraSonib/models"
)

func InitConsumer(logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Retry.Backoff = 1 * time.Second

	brokers := []string{getEnv("KAFKA_BROKER", "localhost:9092")}

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized")
	return consumer, nil
}

// StartConsumer drives the notification loop on the order events topic. It
// only returns on a consume error; run it in its own goroutine.
func StartConsumer(consumer sarama.Consumer, logger *zap.Logger) error {
	topic := getEnv("KAFKA_TOPIC", OrderEventsTopic)
	partitionConsumer, err := consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	logger.Info("Kafka consumer started", zap.String("topic", topic))

	for {
		select {
		case message := <-partitionConsumer.Messages():
			if err := handleMessageWithRetry(message, logger, 3); err != nil {
				logger.Error("Failed to handle message after retries", zap.Error(err))
			}
		case err := <-partitionConsumer.Errors():
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}
}

func handleMessageWithRetry(message *sarama.ConsumerMessage, logger *zap.Logger, maxRetries int) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := handleMessage(message, logger)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < maxRetries {
			backoff := time.Duration(attempt) * time.Second
			logger.Warn("Retrying message handling",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func handleMessage(message *sarama.ConsumerMessage, logger *zap.Logger) error {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), headerReader(message.Headers))

	tracer := otel.Tracer("importadora-sonib")
	ctx, span := tracer.Start(ctx, "ProcessNotification")
	defer span.End()

	var event models.OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.EventType == "" {
		return fmt.Errorf("missing event_type in event")
	}

	span.SetAttributes(
		attribute.String("event.type", event.EventType),
		attribute.Int("order.id", event.OrderID),
	)

	switch event.EventType {
	case models.OrderEventCreated:
		notify(ctx, logger, event,
			fmt.Sprintf("Recibimos tu orden #%d por USD %s. Te avisaremos cuando el pago se confirme.", event.OrderID, event.Total))
	case models.OrderEventPaid:
		notify(ctx, logger, event,
			fmt.Sprintf("El pago de la orden #%d fue aprobado. Pronto coordinamos la entrega.", event.OrderID))
	case models.OrderEventCancelled:
		notify(ctx, logger, event,
			fmt.Sprintf("La orden #%d fue cancelada. Los productos siguen disponibles en tu carrito.", event.OrderID))
	default:
		logger.Debug("Unknown event type", zap.String("event_type", event.EventType))
	}

	return nil
}

func notify(ctx context.Context, logger *zap.Logger, event models.OrderEvent, message string) {
	middleware.RecordNotificationSent(event.EventType)

	logger.Info("Order notification sent",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("event_type", event.EventType),
		zap.Int("order_id", event.OrderID),
		zap.String("user_id", event.UserID),
		zap.String("message", message),
	)

	// Simulate email sending
	recipient := event.UserID
	if recipient == "" {
		recipient = "invitado"
	}
	fmt.Printf("[EMAIL] To: %s@example.com\n", recipient)
	fmt.Printf("[EMAIL] Subject: Importadora Sonib - Orden #%d\n", event.OrderID)
	fmt.Printf("[EMAIL] Body: %s\n\n", message)
}

// headerReader exposes consumed Kafka record headers as a read-only otel
// TextMapCarrier.
type headerReader []*sarama.RecordHeader

func (r headerReader) Get(key string) string {
	for _, h := range r {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (r headerReader) Set(key, value string) {
	// Extraction never writes.
}

func (r headerReader) Keys() []string {
	keys := make([]string, len(r))
	for i, h := range r {
		keys[i] = string(h.Key)
	}
	return keys
}
