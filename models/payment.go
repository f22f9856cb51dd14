package models

import (
	"fmt"
	"time"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

type Payment struct {
	ID            int        `json:"payment_id"`
	OrderID       int        `json:"order_id"`
	Method        string     `json:"payment_method"`
	Status        string     `json:"payment_status"`
	Amount        float64    `json:"amount"`
	TransactionID string     `json:"transaction_id,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
}

// AllowedPaymentTransitions maps a current payment status to the set of
// statuses it may move to. Refunded is terminal; failed may be retried.
var AllowedPaymentTransitions = map[string][]string{
	PaymentPending:   {PaymentCompleted, PaymentFailed},
	PaymentCompleted: {PaymentRefunded},
	PaymentFailed:    {PaymentPending},
	PaymentRefunded:  {},
}

func CanTransitionPayment(from, to string) bool {
	allowed, exists := AllowedPaymentTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func ValidatePaymentTransition(from, to string) error {
	if !CanTransitionPayment(from, to) {
		return fmt.Errorf("Invalid status transition from %s to %s", from, to)
	}
	return nil
}
