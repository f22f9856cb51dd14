package controllers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bookstore-service/database"
	"bookstore-service/middlewares"
	"bookstore-service/models"
)

type processPaymentRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,oneof=pending completed failed refunded"`
	TransactionID string `json:"transaction_id"`
	Notes         string `json:"notes"`
}

// ProcessPayment applies a payment status transition under the allowed
// transition table, inside one transaction. The payment row is locked
// for the duration so two concurrent updates on the same payment
// serialize; the loser re-reads the post-update status and fails the
// table check. Completing a payment re-evaluates the owning order and
// advances it once the completed total covers the order amount.
func ProcessPayment(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("process_payment", ok)
	}()

	paymentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid payment ID"})
		return
	}

	var req processPaymentRequest
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

	var (
		orderID   int
		oldStatus string
		amount    float64
		txnID     sql.NullString
	)
	err = tx.QueryRow(
		"SELECT order_id, payment_status, amount, transaction_id FROM payments WHERE payment_id = ? FOR UPDATE",
		paymentID,
	).Scan(&orderID, &oldStatus, &amount, &txnID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}

	if err := models.ValidatePaymentTransition(oldStatus, req.PaymentStatus); err != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	}

	if req.TransactionID == "" {
		req.TransactionID = txnID.String
	}

	if req.PaymentStatus == models.PaymentCompleted {
		_, err = tx.Exec(
			"UPDATE payments SET payment_status = ?, transaction_id = ?, notes = ?, payment_date = NOW() WHERE payment_id = ?",
			req.PaymentStatus, req.TransactionID, req.Notes, paymentID,
		)
	} else {
		_, err = tx.Exec(
			"UPDATE payments SET payment_status = ?, transaction_id = ?, notes = ? WHERE payment_id = ?",
			req.PaymentStatus, req.TransactionID, req.Notes, paymentID,
		)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update payment"})
		return
	}

	overpaid := false
	if req.PaymentStatus == models.PaymentCompleted {
		var paid float64
		err = tx.QueryRow(
			"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = ? AND payment_status = 'completed'",
			orderID,
		).Scan(&paid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to total payments"})
			return
		}

		var totalAmount float64
		err = tx.QueryRow(
			"SELECT total_amount FROM orders WHERE order_id = ? FOR UPDATE",
			orderID,
		).Scan(&totalAmount)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load order"})
			return
		}

		if paid >= totalAmount {
			// no-op for orders already confirmed or beyond
			_, err = tx.Exec(
				"UPDATE orders SET status = 'confirmed', updated_at = NOW() WHERE order_id = ? AND status = 'pending'",
				orderID,
			)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to advance order"})
				return
			}
		}
		if paid > totalAmount {
			// observed, not auto-refunded; refunds stay an explicit transition
			log.Printf("Order %d overpaid: %.2f of %.2f", orderID, paid, totalAmount)
			overpaid = true
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Transaction commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"old_status": oldStatus,
		"new_status": req.PaymentStatus,
		"order_id":   orderID,
	})

	if rabbitMQ != nil {
		event := models.OrderEvent{OrderID: orderID, Type: "status_updated", Occurred: time.Now()}
		if err := rabbitMQ.PublishOrderEvent(event, 7); err != nil {
			log.Printf("Failed to publish payment event: %v", err)
		}
		if overpaid {
			over := models.OrderEvent{OrderID: orderID, Type: "overpaid", Occurred: time.Now()}
			if err := rabbitMQ.PublishOrderEvent(over, 9); err != nil {
				log.Printf("Failed to publish overpaid event: %v", err)
			}
		}
	}
}

// GetPayment returns a single payment row.
func GetPayment(c *gin.Context) {
	paymentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	var (
		p       models.Payment
		txnID   sql.NullString
		notes   sql.NullString
		payDate sql.NullTime
	)
	err = database.DB.QueryRow(
		"SELECT payment_id, order_id, payment_method, payment_status, amount, transaction_id, notes, payment_date FROM payments WHERE payment_id = ?",
		paymentID,
	).Scan(&p.ID, &p.OrderID, &p.Method, &p.Status, &p.Amount, &txnID, &notes, &payDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	p.TransactionID = txnID.String
	p.Notes = notes.String
	if payDate.Valid {
		t := payDate.Time
		p.PaymentDate = &t
	}

	c.JSON(http.StatusOK, p)
}
