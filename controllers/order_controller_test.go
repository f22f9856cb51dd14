package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore-service/middlewares"
	"bookstore-service/utils"
)

func customerRouter(userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middlewares.SetAuth(c, &middlewares.AuthContext{
			UserID:      userID,
			Role:        utils.RoleCustomer,
			Permissions: map[string]bool{},
		})
	})
	r.POST("/checkout", Checkout)
	return r
}

func adminRouter(adminID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middlewares.SetAuth(c, &middlewares.AuthContext{
			UserID:     adminID,
			Role:       utils.RoleAdmin,
			SuperAdmin: true,
		})
	})
	r.PUT("/orders/:id/status", AdminUpdateOrderStatus)
	r.POST("/orders/update", BatchUpdateOrders)
	return r
}

func TestCheckout_CommitsOrderItemsStockCartAndPayment(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items c")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "quantity", "title", "price", "stock"}).
			AddRow(1, 2, "The Go Programming Language", 25.00, 10).
			AddRow(3, 1, "Database Internals", 40.00, 4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(7, 90.00, "1 Main St", "555-0100").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(10), 1, 2, 25.00, 50.00).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET stock = stock - ?")).
		WithArgs(2, 2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(10), 3, 1, 40.00, 40.00).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET stock = stock - ?")).
		WithArgs(1, 1, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE customer_id = ?")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WithArgs(int64(10), "card", 90.00, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(99, 1))
	mock.ExpectCommit()

	w := postJSON(customerRouter(7), "/checkout", gin.H{
		"payment_method":   "card",
		"shipping_address": "1 Main St",
		"contact_phone":    "555-0100",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(10), resp["order_id"])
	assert.Equal(t, float64(99), resp["payment_id"])
	assert.Equal(t, float64(90), resp["total_amount"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_EmptyCart(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items c")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "quantity", "title", "price", "stock"}))
	mock.ExpectRollback()

	w := postJSON(customerRouter(7), "/checkout", gin.H{
		"payment_method":   "card",
		"shipping_address": "1 Main St",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_InsufficientStockRollsBack(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items c")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"book_id", "quantity", "title", "price", "stock"}).
			AddRow(1, 5, "Rare First Edition", 120.00, 2))
	mock.ExpectRollback()

	w := postJSON(customerRouter(7), "/checkout", gin.H{
		"payment_method":   "card",
		"shipping_address": "1 Main St",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUpdateOrderStatus_OverwritesAndAudits(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE order_id = ?")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("confirmed"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?, updated_at = NOW() WHERE order_id = ?")).
		WithArgs("shipped", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).
		WithArgs(5, 10, "confirmed -> shipped").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPut, "/orders/10/status",
		jsonBody(t, gin.H{"status": "shipped"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	adminRouter(5).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "shipped", resp["new_status"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	_, cleanup := newMockDB(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPut, "/orders/10/status",
		jsonBody(t, gin.H{"status": "teleported"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	adminRouter(5).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchUpdateOrders_PromotesPaidPending(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.status = 'pending' AND p.payment_status = 'completed'")).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(21).AddRow(22))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = 'confirmed'")).
		WithArgs(21).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = 'confirmed'")).
		WithArgs(22).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := postJSON(adminRouter(5), "/orders/update", gin.H{})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["updated_count"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchUpdateOrders_ForceShipsStaleConfirmed(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.status = 'pending' AND p.payment_status = 'completed'")).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}))
	mock.ExpectQuery(regexp.QuoteMeta("updated_at < NOW() - INTERVAL 24 HOUR")).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(30))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = 'shipped'")).
		WithArgs(30).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := postJSON(adminRouter(5), "/orders/update", gin.H{"force": true})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["updated_count"])
	updated := resp["updated_orders"].([]interface{})
	first := updated[0].(map[string]interface{})
	assert.Equal(t, float64(30), first["order_id"])
	assert.Equal(t, "shipped", first["new_status"])

	assert.NoError(t, mock.ExpectationsWereMet())
}
