package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/models"
)

// ConfirmResult reports what a Confirm call did. Applied is false when the
// order was already terminal and the call was a no-op.
type ConfirmResult struct {
	OrderID int                `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
	Applied bool               `json:"applied"`
}

// Confirm applies a payment outcome to an order. The session token must match
// the stored checkout session (case-insensitive). The current status is
// checked before anything else, so a retried outcome against an already
// terminal order never touches stock again.
func (e *Engine) Confirm(ctx context.Context, orderID int, sessionToken, outcome string) (*ConfirmResult, error) {
	var (
		userID  sql.NullString
		status  models.OrderStatus
		session sql.NullString
	)
	err := e.db.QueryRowContext(ctx,
		"SELECT user_id, status, checkout_session_id FROM orders WHERE id = $1",
		orderID,
	).Scan(&userID, &status, &session)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if !session.Valid || !strings.EqualFold(session.String, sessionToken) {
		return nil, models.ErrSessionMismatch
	}

	outcome = strings.ToLower(outcome)
	switch outcome {
	case models.OutcomeApproved, models.OutcomeDeclined, models.OutcomeCanceled:
	default:
		return nil, models.ErrInvalidOutcome
	}

	if status.Terminal() {
		// Paid and cancelled are terminal; a retried capture is a no-op.
		return &ConfirmResult{OrderID: orderID, Status: status, Applied: false}, nil
	}

	switch outcome {
	case models.OutcomeApproved:
		return e.capture(ctx, orderID, userID)

	case models.OutcomeDeclined:
		// The order stays pending; the shopper may retry.
		return &ConfirmResult{OrderID: orderID, Status: models.OrderStatusPending, Applied: false}, nil

	default: // canceled
		_, err := e.db.ExecContext(ctx,
			"UPDATE orders SET status = $1 WHERE id = $2 AND status = $3",
			models.OrderStatusCancelled, orderID, models.OrderStatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel order: %w", err)
		}
		return &ConfirmResult{OrderID: orderID, Status: models.OrderStatusCancelled, Applied: true}, nil
	}
}

type captureLine struct {
	ProductID int
	Quantity  int
	Name      string
	Stock     int
	IsActive  bool
	IsDeleted bool
	Version   int64
	missing   bool
}

// capture is the only multi-writer hot path: it re-validates availability
// against current product rows (time has passed since order creation) and
// decrements stock with a compare-and-swap on each product's version token.
// A lost race rolls the whole transaction back as ErrConcurrencyConflict;
// retrying is the caller's decision.
func (e *Engine) capture(ctx context.Context, orderID int, userID sql.NullString) (*ConfirmResult, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin capture: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The status pre-check ran outside this transaction. Re-read it under a
	// row lock so two concurrent approvals serialize here and the loser sees
	// the winner's terminal status instead of decrementing again.
	var status models.OrderStatus
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if status.Terminal() {
		return &ConfirmResult{OrderID: orderID, Status: status, Applied: false}, nil
	}

	lines, err := loadCaptureLines(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrOrderEmpty
	}

	// Validate every line before mutating anything.
	for _, l := range lines {
		if l.missing || l.IsDeleted || !l.IsActive {
			name := l.Name
			if name == "" {
				name = fmt.Sprintf("#%d", l.ProductID)
			}
			return nil, &models.ProductUnavailableError{ProductID: l.ProductID, Name: name}
		}
		if l.Stock < l.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID: l.ProductID,
				Name:      l.Name,
				Available: l.Stock,
				Requested: l.Quantity,
			}
		}
	}

	for _, l := range lines {
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1, version = version + 1, updated_at = NOW() WHERE id = $2 AND version = $3",
			l.Quantity, l.ProductID, l.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read decrement result: %w", err)
		}
		if affected == 0 {
			// Another writer advanced this product's version since our read.
			e.logger.Warn("Stock decrement lost version race",
				zap.Int("order_id", orderID),
				zap.Int("product_id", l.ProductID),
			)
			return nil, models.ErrConcurrencyConflict
		}
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, paid_at = NOW() WHERE id = $2 AND status = $3",
		models.OrderStatusPaid, orderID, models.OrderStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to read paid result: %w", err)
	} else if affected == 0 {
		return nil, models.ErrConcurrencyConflict
	}

	if userID.Valid {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM cart_items WHERE user_id = $1", userID.String,
		); err != nil {
			return nil, fmt.Errorf("failed to clear cart: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit capture: %w", err)
	}

	// Stock counts are catalog-visible; orphan every cached catalog read.
	e.stamp.Bump()

	return &ConfirmResult{OrderID: orderID, Status: models.OrderStatusPaid, Applied: true}, nil
}

func loadCaptureLines(ctx context.Context, tx *sql.Tx, orderID int) ([]captureLine, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT oi.product_id, oi.quantity, p.name, p.stock, p.is_active, p.is_deleted, p.version
		 FROM order_items oi
		 LEFT JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.product_id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	var lines []captureLine
	for rows.Next() {
		var (
			l         captureLine
			name      sql.NullString
			stock     sql.NullInt64
			isActive  sql.NullBool
			isDeleted sql.NullBool
			version   sql.NullInt64
		)
		if err := rows.Scan(&l.ProductID, &l.Quantity, &name, &stock, &isActive, &isDeleted, &version); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		l.missing = !name.Valid
		l.Name = name.String
		l.Stock = int(stock.Int64)
		l.IsActive = isActive.Bool
		l.IsDeleted = isDeleted.Bool
		l.Version = version.Int64
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order lines: %w", err)
	}
	return lines, nil
}
