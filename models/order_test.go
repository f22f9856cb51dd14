package models

import "testing"

func TestNormalizeOrderStatus(t *testing.T) {
	cases := map[string]string{
		OrderPending:   OrderConfirmed,
		OrderConfirmed: OrderConfirmed,
		OrderShipped:   OrderShipped,
		OrderDelivered: OrderDelivered,
		OrderCancelled: OrderCancelled,
	}
	for in, want := range cases {
		if got := NormalizeOrderStatus(in); got != want {
			t.Errorf("NormalizeOrderStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
