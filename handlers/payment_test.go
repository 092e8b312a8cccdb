package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bladi23/ImportadoraSonib/catalog"
	"github.com/bladi23/ImportadoraSonib/orders"
)

func setupPaymentTest(t *testing.T) (sqlmock.Sqlmock, *mockProducer, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	producer := &mockProducer{}
	engine := orders.NewEngine(db, &fakeTracker{}, catalog.NewStamp(), zaptest.NewLogger(t))
	handler := NewPaymentHandler(engine, producer, zaptest.NewLogger(t))

	router := newRouter()
	router.POST("/api/payments/demo/create-session", handler.CreateSession)
	router.POST("/api/payments/demo/confirm", handler.Confirm)
	router.GET("/api/payments/order/:orderId", handler.GetPaymentStatus)
	return mock, producer, router
}

func confirmBody(orderID int, sessionID, outcome string) *strings.Reader {
	body, _ := json.Marshal(map[string]any{
		"orderId":   orderID,
		"sessionId": sessionID,
		"outcome":   outcome,
	})
	return strings.NewReader(string(body))
}

func TestConfirm_ApprovedReturnsOKAndPublishes(t *testing.T) {
	mock, producer, router := setupPaymentTest(t)

	mock.ExpectQuery("SELECT user_id, status, checkout_session_id FROM orders").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "checkout_session_id"}).
			AddRow("u1", "pending", "DEMO_abc"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectQuery("SELECT oi.product_id, oi.quantity").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "name", "stock", "is_active", "is_deleted", "version"}).
			AddRow(1, 2, "Redmi Note 13", 10, true, false, 4))
	mock.ExpectExec("UPDATE products SET stock = stock").
		WithArgs(2, 1, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/api/payments/demo/confirm", confirmBody(1, "DEMO_abc", "approved"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OrderID int    `json:"order_id"`
		Status  string `json:"status"`
		Applied bool   `json:"applied"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.OrderID)
	assert.Equal(t, "paid", resp.Status)
	assert.True(t, resp.Applied)

	require.Len(t, producer.messages, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirm_VersionRaceIsConflict(t *testing.T) {
	mock, producer, router := setupPaymentTest(t)

	mock.ExpectQuery("SELECT user_id, status, checkout_session_id FROM orders").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "checkout_session_id"}).
			AddRow("u1", "pending", "DEMO_abc"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectQuery("SELECT oi.product_id, oi.quantity").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "name", "stock", "is_active", "is_deleted", "version"}).
			AddRow(1, 2, "Redmi Note 13", 10, true, false, 4))
	mock.ExpectExec("UPDATE products SET stock = stock").
		WithArgs(2, 1, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodPost, "/api/payments/demo/confirm", confirmBody(1, "DEMO_abc", "approved"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, producer.messages)
}

func TestConfirm_RetriedCaptureIsIdempotent(t *testing.T) {
	mock, producer, router := setupPaymentTest(t)

	mock.ExpectQuery("SELECT user_id, status, checkout_session_id FROM orders").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "checkout_session_id"}).
			AddRow("u1", "paid", "DEMO_abc"))

	req := httptest.NewRequest(http.MethodPost, "/api/payments/demo/confirm", confirmBody(1, "DEMO_abc", "approved"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status  string `json:"status"`
		Applied bool   `json:"applied"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "paid", resp.Status)
	assert.False(t, resp.Applied)

	// No stock touched, no event re-published.
	assert.Empty(t, producer.messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirm_SessionMismatchIsForbidden(t *testing.T) {
	mock, _, router := setupPaymentTest(t)

	mock.ExpectQuery("SELECT user_id, status, checkout_session_id FROM orders").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "checkout_session_id"}).
			AddRow("u1", "pending", "DEMO_abc"))

	req := httptest.NewRequest(http.MethodPost, "/api/payments/demo/confirm", confirmBody(1, "DEMO_wrong", "approved"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateSession_AlreadyPaidIsConflict(t *testing.T) {
	mock, _, router := setupPaymentTest(t)

	mock.ExpectQuery("SELECT o.status, COUNT").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("paid", 2))

	req := httptest.NewRequest(http.MethodPost, "/api/payments/demo/create-session", strings.NewReader(`{"orderId":7}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateSession_ReturnsCheckoutURLs(t *testing.T) {
	mock, _, router := setupPaymentTest(t)

	mock.ExpectQuery("SELECT o.status, COUNT").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("pending", 2))
	mock.ExpectExec("UPDATE orders SET payment_provider").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/api/payments/demo/create-session", strings.NewReader(`{"orderId":7}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionID   string `json:"sessionId"`
		CheckoutURL string `json:"checkoutUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.SessionID, "DEMO_"))
	assert.Contains(t, resp.CheckoutURL, "/demo-checkout")
	assert.NoError(t, mock.ExpectationsWereMet())
}
