package orders

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bladi23/ImportadoraSonib/catalog"
	"github.com/bladi23/ImportadoraSonib/models"
)

type trackedEvent struct {
	EventType string
	ProductID int
	UserID    string
	SessionID string
}

type fakeTracker struct {
	events []trackedEvent
}

func (f *fakeTracker) Track(eventType string, productID int, userID, sessionID string) {
	f.events = append(f.events, trackedEvent{eventType, productID, userID, sessionID})
}

func setupEngine(t *testing.T) (*Engine, sqlmock.Sqlmock, *fakeTracker, *catalog.Stamp) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tracker := &fakeTracker{}
	stamp := catalog.NewStamp()
	engine := NewEngine(db, tracker, stamp, zaptest.NewLogger(t))
	return engine, mock, tracker, stamp
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "price", "stock", "is_active", "is_deleted", "version"})
}

func TestNormalizeLines(t *testing.T) {
	lines := []models.OrderLineRequest{
		{ProductID: 7, Quantity: 2},
		{ProductID: 0, Quantity: 5},  // dropped: invalid product id
		{ProductID: 9, Quantity: -1}, // dropped: non-positive quantity
		{ProductID: 7, Quantity: 3},  // merged into the first line
		{ProductID: 3, Quantity: 1},
	}

	got := normalizeLines(lines)

	require.Len(t, got, 2)
	assert.Equal(t, normalizedLine{ProductID: 3, Quantity: 1}, got[0])
	assert.Equal(t, normalizedLine{ProductID: 7, Quantity: 5}, got[1])
}

func TestCreateOrder_EmptyAfterNormalization(t *testing.T) {
	engine, mock, _, _ := setupEngine(t)

	_, err := engine.CreateOrder(context.Background(), models.UserKey("u1"), []models.OrderLineRequest{
		{ProductID: 0, Quantity: 1},
		{ProductID: 5, Quantity: 0},
	})

	assert.ErrorIs(t, err, models.ErrEmptyCart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_InvalidProductFailsWholeOrder(t *testing.T) {
	engine, mock, _, _ := setupEngine(t)

	// Only one of the two requested ids resolves.
	mock.ExpectQuery("SELECT id, name, price, stock, is_active, is_deleted, version FROM products").
		WillReturnRows(productRows().AddRow(1, "Redmi Note 13", "199.00", 20, true, false, 1))

	_, err := engine.CreateOrder(context.Background(), models.UserKey("u1"), []models.OrderLineRequest{
		{ProductID: 1, Quantity: 1},
		{ProductID: 999, Quantity: 1},
	})

	assert.ErrorIs(t, err, models.ErrInvalidProduct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_UnavailableProduct(t *testing.T) {
	engine, mock, _, _ := setupEngine(t)

	mock.ExpectQuery("SELECT id, name, price, stock, is_active, is_deleted, version FROM products").
		WillReturnRows(productRows().AddRow(1, "Redmi Note 13", "199.00", 20, false, false, 1))

	_, err := engine.CreateOrder(context.Background(), models.UserKey("u1"), []models.OrderLineRequest{
		{ProductID: 1, Quantity: 1},
	})

	var unavailable *models.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Redmi Note 13", unavailable.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_InsufficientStockPersistsNothing(t *testing.T) {
	engine, mock, tracker, _ := setupEngine(t)

	mock.ExpectQuery("SELECT id, name, price, stock, is_active, is_deleted, version FROM products").
		WillReturnRows(productRows().AddRow(1, "Redmi Note 13", "199.00", 2, true, false, 1))

	_, err := engine.CreateOrder(context.Background(), models.UserKey("u1"), []models.OrderLineRequest{
		{ProductID: 1, Quantity: 5},
	})

	var insufficient *models.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)
	assert.Equal(t, 5, insufficient.Requested)

	// No transaction was opened, no order or lines written, no events tracked.
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, tracker.events)
}

func TestCreateOrder_MergesDuplicateLines(t *testing.T) {
	engine, mock, tracker, _ := setupEngine(t)

	mock.ExpectQuery("SELECT id, name, price, stock, is_active, is_deleted, version FROM products").
		WillReturnRows(productRows().AddRow(7, "Cargador USB-C 25W", "14.50", 60, true, false, 1))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_date"}).AddRow(42, time.Now()))
	// Exactly one line for the distinct product, quantity summed (2 + 3).
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(42, 7, 5, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	order, err := engine.CreateOrder(context.Background(), models.UserKey("u1"), []models.OrderLineRequest{
		{ProductID: 7, Quantity: 2},
		{ProductID: 7, Quantity: 3},
	})

	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 5, order.Items[0].Quantity)
	assert.Equal(t, "72.50", order.Total.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, tracker.events, 1)
	assert.Equal(t, models.EventPurchase, tracker.events[0].EventType)
	assert.Equal(t, 7, tracker.events[0].ProductID)
	assert.Equal(t, "u1", tracker.events[0].UserID)
}

func TestCreateOrder_PurchaseEventsShareOneSessionID(t *testing.T) {
	engine, mock, tracker, _ := setupEngine(t)

	mock.ExpectQuery("SELECT id, name, price, stock, is_active, is_deleted, version FROM products").
		WillReturnRows(productRows().
			AddRow(1, "Redmi Note 13", "199.00", 20, true, false, 1).
			AddRow(2, "Funda transparente", "6.90", 100, true, false, 1))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_date"}).AddRow(44, time.Now()))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	// A signed-in buyer carries no session; one id must be synthesized for
	// the whole order so its purchase events can be paired later.
	_, err := engine.CreateOrder(context.Background(), models.UserKey("u1"), []models.OrderLineRequest{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, tracker.events, 2)
	assert.NotEmpty(t, tracker.events[0].SessionID)
	assert.Equal(t, tracker.events[0].SessionID, tracker.events[1].SessionID)
	assert.Equal(t, "u1", tracker.events[0].UserID)
}

func TestCreateOrder_SnapshotsCurrentPrices(t *testing.T) {
	engine, mock, tracker, _ := setupEngine(t)

	mock.ExpectQuery("SELECT id, name, price, stock, is_active, is_deleted, version FROM products").
		WillReturnRows(productRows().
			AddRow(1, "Redmi Note 13", "199.00", 20, true, false, 1).
			AddRow(2, "Funda transparente", "6.90", 100, true, false, 3))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_date"}).AddRow(43, time.Now()))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(43, 1, 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(43, 2, 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	order, err := engine.CreateOrder(context.Background(), models.SessionKey("s9"), []models.OrderLineRequest{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 2},
	})

	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "199.00", order.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "6.90", order.Items[1].UnitPrice.StringFixed(2))
	assert.Equal(t, "212.80", order.Total.StringFixed(2))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Empty(t, order.UserID)

	require.Len(t, tracker.events, 2)
	assert.Equal(t, "s9", tracker.events[0].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
