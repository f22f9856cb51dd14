package models

import "testing"

func TestCanTransitionPayment(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{PaymentPending, PaymentCompleted, true},
		{PaymentPending, PaymentFailed, true},
		{PaymentPending, PaymentRefunded, false},
		{PaymentPending, PaymentPending, false},
		{PaymentCompleted, PaymentRefunded, true},
		{PaymentCompleted, PaymentPending, false},
		{PaymentCompleted, PaymentFailed, false},
		{PaymentFailed, PaymentPending, true},
		{PaymentFailed, PaymentCompleted, false},
		{PaymentRefunded, PaymentPending, false},
		{PaymentRefunded, PaymentCompleted, false},
		{PaymentRefunded, PaymentFailed, false},
		{PaymentRefunded, PaymentRefunded, false},
		{"bogus", PaymentCompleted, false},
	}

	for _, tc := range cases {
		if got := CanTransitionPayment(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransitionPayment(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestValidatePaymentTransitionMessage(t *testing.T) {
	err := ValidatePaymentTransition(PaymentRefunded, PaymentCompleted)
	if err == nil {
		t.Fatal("expected error for refunded -> completed")
	}
	want := "Invalid status transition from refunded to completed"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}

	if err := ValidatePaymentTransition(PaymentPending, PaymentCompleted); err != nil {
		t.Errorf("pending -> completed should be allowed, got %v", err)
	}
}
