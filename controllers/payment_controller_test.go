package controllers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore-service/database"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	prev := database.DB
	database.DB = db
	return mock, func() {
		database.DB = prev
		db.Close()
	}
}

func paymentRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payments/:id/process", ProcessPayment)
	return r
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProcessPayment_PendingToCompleted(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT order_id, payment_status, amount, transaction_id FROM payments WHERE payment_id = ? FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "payment_status", "amount", "transaction_id"}).
			AddRow(10, "pending", 50.00, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET payment_status = ?, transaction_id = ?, notes = ?, payment_date = NOW() WHERE payment_id = ?")).
		WithArgs("completed", "txn-abc", "", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = ? AND payment_status = 'completed'")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(50.00))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT total_amount FROM orders WHERE order_id = ? FOR UPDATE")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"total_amount"}).AddRow(50.00))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = 'confirmed', updated_at = NOW() WHERE order_id = ? AND status = 'pending'")).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := postJSON(paymentRouter(), "/payments/1/process", gin.H{
		"payment_status": "completed",
		"transaction_id": "txn-abc",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "pending", resp["old_status"])
	assert.Equal(t, "completed", resp["new_status"])
	assert.Equal(t, float64(10), resp["order_id"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPayment_RefundedIsTerminal(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT order_id, payment_status, amount, transaction_id FROM payments WHERE payment_id = ? FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "payment_status", "amount", "transaction_id"}).
			AddRow(11, "refunded", 25.00, "txn-old"))
	mock.ExpectRollback()

	w := postJSON(paymentRouter(), "/payments/2/process", gin.H{
		"payment_status": "completed",
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Invalid status transition from refunded to completed", resp["error"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPayment_CompletedToRefunded_NoOrderSideEffects(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE payment_id = ? FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "payment_status", "amount", "transaction_id"}).
			AddRow(12, "completed", 30.00, "txn-3"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET payment_status = ?, transaction_id = ?, notes = ? WHERE payment_id = ?")).
		WithArgs("refunded", "txn-3", "customer return", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := postJSON(paymentRouter(), "/payments/3/process", gin.H{
		"payment_status": "refunded",
		"notes":          "customer return",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp["old_status"])
	assert.Equal(t, "refunded", resp["new_status"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPayment_NotFound(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE payment_id = ? FOR UPDATE")).
		WithArgs(999).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	w := postJSON(paymentRouter(), "/payments/999/process", gin.H{
		"payment_status": "completed",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPayment_PartialPaymentDoesNotAdvanceOrder(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE payment_id = ? FOR UPDATE")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "payment_status", "amount", "transaction_id"}).
			AddRow(13, "pending", 20.00, nil))
	mock.ExpectExec(regexp.QuoteMeta("payment_date = NOW()")).
		WithArgs("completed", "", "", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments")).
		WithArgs(13).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(20.00))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT total_amount FROM orders WHERE order_id = ? FOR UPDATE")).
		WithArgs(13).
		WillReturnRows(sqlmock.NewRows([]string{"total_amount"}).AddRow(60.00))
	// paid < total: no order update expected
	mock.ExpectCommit()

	w := postJSON(paymentRouter(), "/payments/4/process", gin.H{
		"payment_status": "completed",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPayment_InvalidStatusValue(t *testing.T) {
	_, cleanup := newMockDB(t)
	defer cleanup()

	w := postJSON(paymentRouter(), "/payments/1/process", gin.H{
		"payment_status": "paid",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
