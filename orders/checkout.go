package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/bladi23/ImportadoraSonib/models"
)

// CreateDemoSession opens a checkout session with the demo payment provider:
// it stamps the order with a fresh session id and returns the URLs the
// storefront needs to drive the simulated payment.
func (e *Engine) CreateDemoSession(ctx context.Context, orderID int) (*models.DemoSession, error) {
	var (
		status    models.OrderStatus
		lineCount int
	)
	err := e.db.QueryRowContext(ctx,
		`SELECT o.status, COUNT(oi.id)
		 FROM orders o
		 LEFT JOIN order_items oi ON oi.order_id = o.id
		 WHERE o.id = $1
		 GROUP BY o.status`,
		orderID,
	).Scan(&status, &lineCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if status == models.OrderStatusPaid {
		return nil, ErrOrderAlreadyPaid
	}
	if lineCount == 0 {
		return nil, ErrOrderEmpty
	}

	sessionID := "DEMO_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	_, err = e.db.ExecContext(ctx,
		"UPDATE orders SET payment_provider = 'demo', checkout_session_id = $1, payment_external_id = $1 WHERE id = $2",
		sessionID, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store checkout session: %w", err)
	}

	clientURL := getEnv("CLIENT_URL", "http://localhost:4200")
	return &models.DemoSession{
		SessionID:   sessionID,
		CheckoutURL: fmt.Sprintf("%s/demo-checkout?orderId=%d&sessionId=%s", clientURL, orderID, sessionID),
		SuccessURL:  fmt.Sprintf("%s/checkout/success?orderId=%d&session_id=%s", clientURL, orderID, sessionID),
		CancelURL:   fmt.Sprintf("%s/checkout/cancel?orderId=%d", clientURL, orderID),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
