package controllers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookstore-service/database"
	"bookstore-service/middlewares"
	"bookstore-service/models"
	"bookstore-service/rabbitmq"
)

var rabbitMQ *rabbitmq.RabbitMQ

func SetRabbitMQ(rmq *rabbitmq.RabbitMQ) {
	rabbitMQ = rmq
}

type checkoutRequest struct {
	PaymentMethod   string `json:"payment_method" binding:"required"`
	ShippingAddress string `json:"shipping_address" binding:"required"`
	ContactPhone    string `json:"contact_phone"`
}

// Checkout converts the customer's cart into an order in a single
// transaction: order row, order items, stock decrement, cart clear, and
// a pending payment row all commit or roll back together.
func Checkout(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("checkout", ok)
	}()

	auth := middlewares.GetAuth(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start transaction"})
		return
	}
	defer tx.Rollback()

	// Lock the book rows so concurrent checkouts cannot both take the
	// last copy.
	rows, err := tx.Query(`
		SELECT c.book_id, c.quantity, b.title, b.price, b.stock
		FROM cart_items c
		JOIN books b ON b.book_id = c.book_id
		WHERE c.customer_id = ?
		ORDER BY c.book_id
		FOR UPDATE
	`, auth.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	type cartLine struct {
		bookID   int
		quantity int
		title    string
		price    float64
		stock    int
	}
	var lines []cartLine
	for rows.Next() {
		var l cartLine
		if err := rows.Scan(&l.bookID, &l.quantity, &l.title, &l.price, &l.stock); err != nil {
			rows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	rows.Close()

	if len(lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	var total float64
	for _, l := range lines {
		if l.stock < l.quantity {
			c.JSON(http.StatusConflict, gin.H{"error": "Insufficient stock for " + l.title})
			return
		}
		total += l.price * float64(l.quantity)
	}

	orderResult, err := tx.Exec(
		"INSERT INTO orders (customer_id, order_date, total_amount, status, shipping_address, contact_phone, updated_at) VALUES (?, NOW(), ?, 'pending', ?, ?, NOW())",
		auth.UserID, total, req.ShippingAddress, req.ContactPhone,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}
	orderID, err := orderResult.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order ID"})
		return
	}

	for _, l := range lines {
		subtotal := l.price * float64(l.quantity)
		_, err = tx.Exec(
			"INSERT INTO order_items (order_id, book_id, quantity, unit_price, subtotal, stock_applied) VALUES (?, ?, ?, ?, ?, 1)",
			orderID, l.bookID, l.quantity, l.price, subtotal,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add order item"})
			return
		}

		_, err = tx.Exec(
			"UPDATE books SET stock = stock - ?, total_sales = total_sales + ? WHERE book_id = ?",
			l.quantity, l.quantity, l.bookID,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
			return
		}
	}

	_, err = tx.Exec("DELETE FROM cart_items WHERE customer_id = ?", auth.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}

	paymentResult, err := tx.Exec(
		"INSERT INTO payments (order_id, payment_method, payment_status, amount, transaction_id) VALUES (?, ?, 'pending', ?, ?)",
		orderID, req.PaymentMethod, total, uuid.NewString(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		return
	}
	paymentID, err := paymentResult.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get payment ID"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id":     orderID,
		"payment_id":   paymentID,
		"total_amount": total,
	})

	if rabbitMQ != nil {
		priority := 5
		if total > 1000 {
			priority = 9
		}
		event := models.OrderEvent{OrderID: int(orderID), Type: "created", Total: total, Occurred: time.Now()}
		if err := rabbitMQ.PublishOrderEvent(event, priority); err != nil {
			log.Printf("Failed to publish order created event: %v", err)
		}

		check := models.OrderEvent{OrderID: int(orderID), Type: "payment_check", Occurred: time.Now()}
		if err := rabbitMQ.PublishDelayedEvent(check, 15*time.Minute); err != nil {
			log.Printf("Failed to publish delayed payment check event: %v", err)
		}
	}
}

// GetCustomerOrders lists the calling customer's orders with items.
// Legacy "pending" rows are normalized to "confirmed" in SQL so every
// consumer sees the same status.
func GetCustomerOrders(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("list_orders", ok)
	}()

	auth := middlewares.GetAuth(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rows, err := database.DB.Query(`
		SELECT o.order_id, o.total_amount,
		       CASE WHEN o.status = 'pending' THEN 'confirmed' ELSE o.status END,
		       o.order_date,
		       oi.id, oi.book_id, b.title, oi.quantity, oi.unit_price
		FROM orders o
		JOIN order_items oi ON o.order_id = oi.order_id
		JOIN books b ON b.book_id = oi.book_id
		WHERE o.customer_id = ?
		ORDER BY o.order_date DESC, oi.id ASC
	`, auth.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {

		}
	}(rows)

	ordersMap := make(map[int]*models.OrderResponse)
	var orderIDs []int
	for rows.Next() {
		var (
			orderID   int
			total     float64
			status    string
			orderDate time.Time
			itemID    int
			bookID    int
			title     string
			quantity  int
			unitPrice float64
		)

		if err := rows.Scan(&orderID, &total, &status, &orderDate,
			&itemID, &bookID, &title, &quantity, &unitPrice); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}

		if _, exists := ordersMap[orderID]; !exists {
			ordersMap[orderID] = &models.OrderResponse{
				ID:          orderID,
				CustomerID:  auth.UserID,
				OrderDate:   orderDate,
				TotalAmount: total,
				Status:      status,
				Items:       []models.OrderItemDetail{},
			}
			orderIDs = append(orderIDs, orderID)
		}

		ordersMap[orderID].Items = append(ordersMap[orderID].Items, models.OrderItemDetail{
			BookID:    bookID,
			Title:     title,
			Quantity:  quantity,
			UnitPrice: unitPrice,
			Subtotal:  unitPrice * float64(quantity),
		})
	}

	orders := make([]models.OrderResponse, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *ordersMap[id])
	}

	c.JSON(http.StatusOK, orders)
}

func GetOrderDetails(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("order_details", ok)
	}()

	auth := middlewares.GetAuth(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var order models.OrderResponse
	err = database.DB.QueryRow(`
		SELECT order_id, customer_id, total_amount,
		       CASE WHEN status = 'pending' THEN 'confirmed' ELSE status END,
		       order_date
		FROM orders
		WHERE order_id = ? AND customer_id = ?
	`, orderID, auth.UserID).Scan(
		&order.ID, &order.CustomerID, &order.TotalAmount, &order.Status, &order.OrderDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	rows, err := database.DB.Query(`
		SELECT oi.book_id, b.title, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN books b ON b.book_id = oi.book_id
		WHERE oi.order_id = ?
	`, orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order items"})
		return
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {

		}
	}(rows)

	for rows.Next() {
		var item models.OrderItemDetail
		if err := rows.Scan(&item.BookID, &item.Title, &item.Quantity, &item.UnitPrice); err != nil {
			log.Printf("Error scanning order item: %v", err)
			continue
		}
		item.Subtotal = item.UnitPrice * float64(item.Quantity)
		order.Items = append(order.Items, item)
	}

	c.JSON(http.StatusOK, order)
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=confirmed shipped delivered cancelled"`
}

// AdminUpdateOrderStatus overwrites an order's status without a
// transition table: it is the admin override escape hatch. Every
// overwrite is written to the audit log.
func AdminUpdateOrderStatus(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("update_order_status", ok)
	}()

	auth := middlewares.GetAuth(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not authenticated"})
		return
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid order ID"})
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not start transaction"})
		return
	}
	defer tx.Rollback()

	var oldStatus string
	err = tx.QueryRow("SELECT status FROM orders WHERE order_id = ?", orderID).Scan(&oldStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}

	_, err = tx.Exec(
		"UPDATE orders SET status = ?, updated_at = NOW() WHERE order_id = ?",
		req.Status, orderID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}

	_, err = tx.Exec(
		"INSERT INTO audit_log (admin_id, action, entity, entity_id, detail) VALUES (?, 'status_override', 'order', ?, ?)",
		auth.UserID, orderID, oldStatus+" -> "+req.Status,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to write audit log"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Transaction commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Order status updated",
		"new_status": req.Status,
		"order_id":   orderID,
	})

	if rabbitMQ != nil {
		priority := 5
		if req.Status == models.OrderCancelled {
			priority = 8
		}
		event := models.OrderEvent{OrderID: orderID, Type: "status_updated", Status: req.Status, Occurred: time.Now()}
		if err := rabbitMQ.PublishOrderEvent(event, priority); err != nil {
			log.Printf("Failed to publish order updated event: %v", err)
		}
	}
}

type batchUpdateRequest struct {
	Force bool `json:"force"`
}

type batchUpdatedOrder struct {
	OrderID   int    `json:"order_id"`
	NewStatus string `json:"new_status"`
}

// BatchUpdateOrders promotes pending orders whose latest payment is
// completed to confirmed. With force it also ships orders that have sat
// confirmed for more than 24 hours.
func BatchUpdateOrders(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("batch_update_orders", ok)
	}()

	var req batchUpdateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	tx, err := database.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not start transaction"})
		return
	}
	defer tx.Rollback()

	promote, err := collectOrderIDs(tx, `
		SELECT o.order_id
		FROM orders o
		JOIN payments p ON p.order_id = o.order_id
		JOIN (
			SELECT order_id, MAX(payment_id) AS payment_id
			FROM payments
			GROUP BY order_id
		) latest ON latest.payment_id = p.payment_id
		WHERE o.status = 'pending' AND p.payment_status = 'completed'
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}

	var updated []batchUpdatedOrder
	for _, id := range promote {
		_, err = tx.Exec(
			"UPDATE orders SET status = 'confirmed', updated_at = NOW() WHERE order_id = ? AND status = 'pending'",
			id,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
			return
		}
		updated = append(updated, batchUpdatedOrder{OrderID: id, NewStatus: models.OrderConfirmed})
	}

	if req.Force {
		ship, err := collectOrderIDs(tx, `
			SELECT order_id
			FROM orders
			WHERE status = 'confirmed' AND updated_at < NOW() - INTERVAL 24 HOUR
		`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
			return
		}
		for _, id := range ship {
			_, err = tx.Exec(
				"UPDATE orders SET status = 'shipped', updated_at = NOW() WHERE order_id = ? AND status = 'confirmed'",
				id,
			)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
				return
			}
			updated = append(updated, batchUpdatedOrder{OrderID: id, NewStatus: models.OrderShipped})
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Transaction commit failed"})
		return
	}

	if updated == nil {
		updated = []batchUpdatedOrder{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"updated_count":  len(updated),
		"updated_orders": updated,
	})
}

func collectOrderIDs(tx *sql.Tx, query string) ([]int, error) {
	rows, err := tx.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HandleDeadLetter accepts dead-lettered order events for inspection.
func HandleDeadLetter(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("dead_letter", ok)
	}()

	var deadLetter struct {
		OrderID int    `json:"order_id"`
		Reason  string `json:"reason"`
	}

	if err := c.ShouldBindJSON(&deadLetter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Handling dead letter for order %d: %s", deadLetter.OrderID, deadLetter.Reason)

	c.JSON(http.StatusOK, gin.H{"message": "Dead letter processed"})
}
