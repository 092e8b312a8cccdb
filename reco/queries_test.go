package reco

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, zaptest.NewLogger(t)), mock
}

func cardRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "slug", "price", "image_url", "stock", "name"})
}

func TestClampTake(t *testing.T) {
	assert.Equal(t, defaultTake, clampTake(0))
	assert.Equal(t, defaultTake, clampTake(-3))
	assert.Equal(t, 5, clampTake(5))
	assert.Equal(t, maxTake, clampTake(100))
}

func TestPopular_ScoredResults(t *testing.T) {
	svc, mock := setupService(t)

	mock.ExpectQuery("FROM product_events e").
		WithArgs(defaultWindowDays, 2).
		WillReturnRows(cardRows().
			AddRow(3, "Redmi Note 13", "redmi-note-13", "199.00", "/img/redmi.jpg", 20, "Celulares").
			AddRow(1, "Funda transparente", "funda-transparente", "6.90", "/img/funda.jpg", 100, "Accesorios"))

	cards, err := svc.Popular(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, 3, cards[0].ID)
	assert.Equal(t, "Celulares", cards[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPopular_ThinEventLogYieldsShortResult(t *testing.T) {
	svc, mock := setupService(t)

	// Only one product has events: the answer is that one product, not a
	// list padded with products nobody interacted with.
	mock.ExpectQuery("FROM product_events e").
		WithArgs(defaultWindowDays, 3).
		WillReturnRows(cardRows().
			AddRow(3, "Redmi Note 13", "redmi-note-13", "199.00", "/img/redmi.jpg", 20, "Celulares"))

	cards, err := svc.Popular(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, 3, cards[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlsoBought_PreservesRankThroughAvailabilityFilter(t *testing.T) {
	svc, mock := setupService(t)

	// Ranked co-purchase ids: 9, 4, 7. Product 4 is filtered out as
	// unavailable; 9 and 7 must keep their relative order even though the
	// batch fetch returns them in a different order.
	mock.ExpectQuery("SELECT e.product_id").
		WithArgs(1, 2*defaultTake).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).
			AddRow(9).AddRow(4).AddRow(7))
	mock.ExpectQuery("FROM products p").
		WillReturnRows(cardRows().
			AddRow(7, "Cargador USB-C 25W", "cargador-usb-c", "14.50", "/img/cargador.jpg", 60, "Accesorios").
			AddRow(9, "Funda transparente", "funda-transparente", "6.90", "/img/funda.jpg", 100, "Accesorios"))

	cards, err := svc.AlsoBought(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, 9, cards[0].ID)
	assert.Equal(t, 7, cards[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlsoBought_FillsTakeFromOverfetchedMargin(t *testing.T) {
	svc, mock := setupService(t)

	// take=2 ranks a margin of 4 candidates. The top-ranked 4 is gone from
	// the catalog, so the result is filled from the remaining candidates
	// and still truncated to take after the filter.
	mock.ExpectQuery("SELECT e.product_id").
		WithArgs(1, 4).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).
			AddRow(4).AddRow(9).AddRow(7).AddRow(5))
	mock.ExpectQuery("FROM products p").
		WillReturnRows(cardRows().
			AddRow(5, "Galaxy A25 128GB", "galaxy-a25", "229.90", "/img/galaxy.jpg", 15, "Celulares").
			AddRow(7, "Cargador USB-C 25W", "cargador-usb-c", "14.50", "/img/cargador.jpg", 60, "Accesorios").
			AddRow(9, "Funda transparente", "funda-transparente", "6.90", "/img/funda.jpg", 100, "Accesorios"))

	cards, err := svc.AlsoBought(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, 9, cards[0].ID)
	assert.Equal(t, 7, cards[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlsoBought_NoCoPurchases(t *testing.T) {
	svc, mock := setupService(t)

	mock.ExpectQuery("SELECT e.product_id").
		WithArgs(1, 2*defaultTake).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}))

	cards, err := svc.AlsoBought(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.NoError(t, mock.ExpectationsWereMet())
}
