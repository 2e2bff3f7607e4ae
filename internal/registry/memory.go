package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"wht-store-pay/internal/constant"
)

// MemoryRegistry is the in-process registry. Entries do not survive a restart.
type MemoryRegistry struct {
	mu        sync.Mutex
	byKey     map[string]PendingPayment
	byPayment map[string]string
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byKey:     make(map[string]PendingPayment),
		byPayment: make(map[string]string),
	}
}

func (r *MemoryRegistry) Put(_ context.Context, p PendingPayment) error {
	ks := p.Key.String()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[ks]; ok {
		return constant.Errorf(constant.CodeDuplicatePendingPayment, "key %s", ks)
	}
	r.byKey[ks] = p
	r.byPayment[p.PaymentID] = ks
	return nil
}

func (r *MemoryRegistry) Take(_ context.Context, key PurchaseKey, paymentID string) (*PendingPayment, error) {
	ks := key.String()
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byKey[ks]
	if !ok || (paymentID != "" && p.PaymentID != paymentID) {
		return nil, nil
	}
	r.remove(ks, p)
	return &p, nil
}

func (r *MemoryRegistry) FindByPaymentID(_ context.Context, paymentID string) (*PurchaseKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ks, ok := r.byPayment[paymentID]
	if !ok {
		return nil, nil
	}
	k := r.byKey[ks].Key
	return &k, nil
}

func (r *MemoryRegistry) TakeStale(_ context.Context, cutoff time.Time) ([]PendingPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PendingPayment
	for ks, p := range r.byKey {
		if !p.CreatedAt.After(cutoff) {
			out = append(out, p)
			r.remove(ks, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRegistry) Len(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey), nil
}

// remove must be called with mu held.
func (r *MemoryRegistry) remove(ks string, p PendingPayment) {
	delete(r.byKey, ks)
	if r.byPayment[p.PaymentID] == ks {
		delete(r.byPayment, p.PaymentID)
	}
}
