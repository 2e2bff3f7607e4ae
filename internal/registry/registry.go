package registry

import (
	"context"
	"time"
)

// PendingPayment is the registry's record of an outstanding gateway payment.
type PendingPayment struct {
	Key       PurchaseKey
	PaymentID string
	CreatedAt time.Time
}

// Registry maps purchase keys to outstanding gateway payments.
//
// Every removal goes through Take or TakeStale, which are atomic: once an
// entry has been handed to one caller no other caller can obtain it.
type Registry interface {
	// Put inserts p; it fails with CodeDuplicatePendingPayment when the key is taken.
	Put(ctx context.Context, p PendingPayment) error
	// Take removes and returns the entry for key. A non-empty paymentID must
	// match the stored one, otherwise nothing is removed. Returns nil when
	// nothing matched.
	Take(ctx context.Context, key PurchaseKey, paymentID string) (*PendingPayment, error)
	// FindByPaymentID returns the key holding paymentID without removing it.
	FindByPaymentID(ctx context.Context, paymentID string) (*PurchaseKey, error)
	// TakeStale removes and returns every entry created at or before cutoff.
	// On error the entries already removed are still returned with it.
	TakeStale(ctx context.Context, cutoff time.Time) ([]PendingPayment, error)
	Len(ctx context.Context) (int, error)
}
