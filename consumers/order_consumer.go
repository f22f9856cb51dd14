package consumers

import (
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"bookstore-service/config"
	"bookstore-service/database"
	"bookstore-service/models"
)

func StartOrderConsumer(ch *amqp.Channel, cfg *config.Config) {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"bookstore-service", // consumer tag
		false,               // auto-ack
		false,               // exclusive
		false,               // no-local
		false,               // no-wait
		nil,
	)
	if err != nil {
		log.Fatalf("Failed to register consumer: %v", err)
	}

	go func() {
		for msg := range msgs {
			processOrderMessage(msg)
		}
	}()

	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"bookstore-service-dlq", // consumer tag
		false,                   // auto-ack
		false,                   // exclusive
		false,                   // no-local
		false,                   // no-wait
		nil,
	)
	if err != nil {
		log.Printf("Failed to register DLQ consumer: %v", err)
	}

	go func() {
		for msg := range dlqMsgs {
			processDeadLetterMessage(msg)
		}
	}()
}

func processOrderMessage(msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in message processing: %v", r)
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Invalid event payload: %s", msg.Body)
		err := msg.Nack(false, false)
		if err != nil {
			return
		}
		return
	}

	log.Printf("Processing order event: ID=%d, Type=%s", event.OrderID, event.Type)

	switch event.Type {
	case "created":
		handleOrderCreated(event.OrderID)
	case "status_updated":
		handleStatusUpdated(event.OrderID)
	case "payment_check":
		handlePaymentCheck(event.OrderID)
	case "overpaid":
		log.Printf("Order %d flagged as overpaid; leaving for manual refund review", event.OrderID)
	default:
		log.Printf("Unknown event type: %s", event.Type)
	}

	err := msg.Ack(false)
	if err != nil {
		return
	}
}

func processDeadLetterMessage(msg amqp.Delivery) {
	log.Printf("Received dead letter: %s", msg.Body)
	err := msg.Ack(false)
	if err != nil {
		return
	}
}

func handleOrderCreated(orderID int) {
	log.Printf("Handling order created: %d", orderID)
}

func handleStatusUpdated(orderID int) {
	var status string
	err := database.DB.QueryRow("SELECT status FROM orders WHERE order_id = ?", orderID).Scan(&status)
	if err != nil {
		log.Printf("Failed to get order status: %v", err)
		return
	}

	switch status {
	case models.OrderShipped:
		// shipping notification hook
	case models.OrderCancelled:
		// cancellation cleanup hook
	}
	log.Printf("Handling status update for order %d: %s", orderID, status)
}

// handlePaymentCheck fires from the delayed exchange a while after
// checkout. Orders still awaiting payment with no completed payment on
// record are cancelled.
func handlePaymentCheck(orderID int) {
	var status string
	err := database.DB.QueryRow("SELECT status FROM orders WHERE order_id = ?", orderID).Scan(&status)
	if err != nil {
		log.Printf("Failed to get order status: %v", err)
		return
	}
	if status != models.OrderPending {
		return
	}

	var completed int
	err = database.DB.QueryRow(
		"SELECT COUNT(*) FROM payments WHERE order_id = ? AND payment_status = 'completed'",
		orderID,
	).Scan(&completed)
	if err != nil {
		log.Printf("Failed to check payments for order %d: %v", orderID, err)
		return
	}
	if completed > 0 {
		return
	}

	_, err = database.DB.Exec(
		"UPDATE orders SET status = 'cancelled', updated_at = NOW() WHERE order_id = ? AND status = 'pending'",
		orderID,
	)
	if err != nil {
		log.Printf("Failed to auto-cancel order %d: %v", orderID, err)
	} else {
		log.Printf("Auto-cancelled order %d due to non-payment", orderID)
	}
}
