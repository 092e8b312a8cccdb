package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/models"
)

// unavailableName is rendered for lines whose product vanished from the
// catalog; a cart listing must never fail because a product was deleted.
const unavailableName = "(no longer available)"

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Add inserts a line for (owner, productID) or increments the existing one.
// Product existence is the caller's concern; the public add-to-cart endpoint
// verifies it before delegating here.
func (s *Store) Add(ctx context.Context, owner models.OwnerKey, productID, qty int) error {
	if qty <= 0 {
		return models.ErrInvalidQuantity
	}

	userID, sessionID := owner.Columns()

	var lineID int
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM cart_items WHERE product_id = $1 AND user_id IS NOT DISTINCT FROM $2 AND session_id IS NOT DISTINCT FROM $3",
		productID, userID, sessionID,
	).Scan(&lineID)

	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO cart_items (product_id, quantity, user_id, session_id) VALUES ($1, $2, $3, $4)",
			productID, qty, userID, sessionID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cart line: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up cart line: %w", err)
	}

	// Increment in SQL so two rapid adds never lose quantity.
	_, err = s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2",
		qty, lineID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment cart line: %w", err)
	}
	return nil
}

// Remove deletes the line for (owner, productID). Removing an absent line is
// a no-op, not an error.
func (s *Store) Remove(ctx context.Context, owner models.OwnerKey, productID int) error {
	userID, sessionID := owner.Columns()
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE product_id = $1 AND user_id IS NOT DISTINCT FROM $2 AND session_id IS NOT DISTINCT FROM $3",
		productID, userID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

// Clear deletes every line the owner has.
func (s *Store) Clear(ctx context.Context, owner models.OwnerKey) error {
	userID, sessionID := owner.Columns()
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id IS NOT DISTINCT FROM $1 AND session_id IS NOT DISTINCT FROM $2",
		userID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// List returns the owner's lines joined with their product snapshots.
func (s *Store) List(ctx context.Context, owner models.OwnerKey) ([]models.CartView, error) {
	userID, sessionID := owner.Columns()
	rows, err := s.db.QueryContext(ctx,
		`SELECT ci.id, ci.product_id, ci.quantity, ci.created_at,
		        p.name, p.price, p.is_active, p.is_deleted
		 FROM cart_items ci
		 LEFT JOIN products p ON p.id = ci.product_id
		 WHERE ci.user_id IS NOT DISTINCT FROM $1 AND ci.session_id IS NOT DISTINCT FROM $2
		 ORDER BY ci.id`,
		userID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	var views []models.CartView
	for rows.Next() {
		var (
			v         models.CartView
			name      sql.NullString
			price     sql.NullString
			isActive  sql.NullBool
			isDeleted sql.NullBool
		)
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Quantity, &v.CreatedAt,
			&name, &price, &isActive, &isDeleted); err != nil {
			s.logger.Error("Failed to scan cart line", zap.Error(err))
			continue
		}

		if !name.Valid || isDeleted.Bool || !isActive.Bool {
			v.ProductName = unavailableName
			v.UnitPrice = decimal.Zero
			v.Unavailable = true
		} else {
			v.ProductName = name.String
			v.UnitPrice, err = decimal.NewFromString(price.String)
			if err != nil {
				s.logger.Error("Failed to parse cart line price",
					zap.Int("product_id", v.ProductID), zap.Error(err))
				v.UnitPrice = decimal.Zero
			}
		}
		v.Subtotal = v.UnitPrice.Mul(decimal.NewFromInt(int64(v.Quantity)))
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart: %w", err)
	}
	return views, nil
}
