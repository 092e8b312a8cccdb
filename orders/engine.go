package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/catalog"
	"github.com/bladi23/ImportadoraSonib/models"
)

var (
	ErrOrderAlreadyPaid = errors.New("order is already paid")
	ErrOrderEmpty       = errors.New("order has no items")
)

// EventTracker records behavioral events. Implementations must never block or
// fail the caller; the engine treats tracking as fire-and-forget.
type EventTracker interface {
	Track(eventType string, productID int, userID, sessionID string)
}

// Engine validates, normalizes and persists orders, and applies payment
// outcomes. Stock is committed only at payment capture, never at creation, so
// abandoned pending orders cannot lock inventory.
type Engine struct {
	db      *sql.DB
	tracker EventTracker
	stamp   *catalog.Stamp
	logger  *zap.Logger
}

func NewEngine(db *sql.DB, tracker EventTracker, stamp *catalog.Stamp, logger *zap.Logger) *Engine {
	return &Engine{db: db, tracker: tracker, stamp: stamp, logger: logger}
}

type normalizedLine struct {
	ProductID int
	Quantity  int
}

// normalizeLines drops lines with non-positive product ids or quantities and
// merges duplicates by summing. The result is sorted by product id so the
// rest of the pipeline is deterministic.
func normalizeLines(lines []models.OrderLineRequest) []normalizedLine {
	merged := make(map[int]int, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 || l.Quantity <= 0 {
			continue
		}
		merged[l.ProductID] += l.Quantity
	}

	out := make([]normalizedLine, 0, len(merged))
	for id, qty := range merged {
		out = append(out, normalizedLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

type productRow struct {
	ID        int
	Name      string
	Price     decimal.Decimal
	Stock     int
	IsActive  bool
	IsDeleted bool
	Version   int64
}

func (p productRow) purchasable() bool {
	return p.IsActive && !p.IsDeleted
}

// CreateOrder runs the full pipeline: normalize, resolve products in one
// batch, validate every line before any write, snapshot current unit prices,
// persist order plus lines in a single transaction. Stock is intentionally
// not touched here.
func (e *Engine) CreateOrder(ctx context.Context, owner models.OwnerKey, lines []models.OrderLineRequest) (*models.Order, error) {
	normalized := normalizeLines(lines)
	if len(normalized) == 0 {
		return nil, models.ErrEmptyCart
	}

	ids := make([]int64, len(normalized))
	for i, n := range normalized {
		ids[i] = int64(n.ProductID)
	}

	products, err := e.fetchProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		// Any unknown id fails the whole order, never a partial one.
		return nil, models.ErrInvalidProduct
	}

	for _, n := range normalized {
		p := products[n.ProductID]
		if !p.purchasable() {
			return nil, &models.ProductUnavailableError{ProductID: p.ID, Name: p.Name}
		}
		if p.Stock < n.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: n.Quantity,
			}
		}
	}

	order := &models.Order{
		Status: models.OrderStatusPending,
		UserID: owner.UserID,
		Total:  decimal.Zero,
	}
	for _, n := range normalized {
		p := products[n.ProductID]
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    n.Quantity,
			UnitPrice:   p.Price,
		})
		order.Total = order.Total.Add(p.Price.Mul(decimal.NewFromInt(int64(n.Quantity))))
	}

	if err := e.persistOrder(ctx, order); err != nil {
		return nil, err
	}

	// Best-effort purchase events, one per distinct product. The tracker
	// swallows its own failures; the order is already committed. Every event
	// of this order carries the same session id (signed-in carts have none),
	// so basket analysis can pair the lines later.
	sessionID := owner.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	for _, item := range order.Items {
		e.tracker.Track(models.EventPurchase, item.ProductID, owner.UserID, sessionID)
	}

	return order, nil
}

func (e *Engine) fetchProducts(ctx context.Context, ids []int64) (map[int]productRow, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT id, name, price, stock, is_active, is_deleted, version FROM products WHERE id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer rows.Close()

	products := make(map[int]productRow, len(ids))
	for rows.Next() {
		var p productRow
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsActive, &p.IsDeleted, &p.Version); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

func (e *Engine) persistOrder(ctx context.Context, order *models.Order) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	userID := sql.NullString{String: order.UserID, Valid: order.UserID != ""}
	err = tx.QueryRowContext(ctx,
		"INSERT INTO orders (user_id, total, status) VALUES ($1, $2, $3) RETURNING id, order_date",
		userID, order.Total, order.Status,
	).Scan(&order.ID, &order.OrderDate)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.QueryRowContext(ctx,
			"INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4) RETURNING id",
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// GetOrder loads an order with its lines and the (possibly stale) product
// names for display.
func (e *Engine) GetOrder(ctx context.Context, orderID int) (*models.Order, error) {
	var (
		order     models.Order
		userID    sql.NullString
		provider  sql.NullString
		sessionID sql.NullString
		extID     sql.NullString
		paidAt    sql.NullTime
	)
	err := e.db.QueryRowContext(ctx,
		`SELECT id, user_id, order_date, total, status, payment_provider,
		        checkout_session_id, payment_external_id, paid_at
		 FROM orders WHERE id = $1`,
		orderID,
	).Scan(&order.ID, &userID, &order.OrderDate, &order.Total, &order.Status,
		&provider, &sessionID, &extID, &paidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	order.UserID = userID.String
	order.PaymentProvider = provider.String
	order.CheckoutSessionID = sessionID.String
	order.PaymentExternalID = extID.String
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}

	rows, err := e.db.QueryContext(ctx,
		`SELECT oi.id, oi.product_id, oi.quantity, oi.unit_price, COALESCE(p.name, '')
		 FROM order_items oi
		 LEFT JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := models.OrderItem{OrderID: order.ID}
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.ProductName); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}
	return &order, nil
}
