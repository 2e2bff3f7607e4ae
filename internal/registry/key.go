package registry

import (
	"regexp"
	"strconv"
	"time"

	"wht-store-pay/internal/constant"
)

// PurchaseKey identifies one outstanding payment request.
// Its string form is <buyer>p<purchase>t<unixMillis>[s<seller>].
type PurchaseKey struct {
	BuyerID    uint64
	PurchaseID uint64
	CreatedAt  time.Time
	SellerID   uint64 // 0 when the store owner is the payee
}

// NewPurchaseKey truncates createdAt to milliseconds so the key survives a round trip.
func NewPurchaseKey(buyerID, purchaseID uint64, createdAt time.Time, sellerID uint64) PurchaseKey {
	return PurchaseKey{
		BuyerID:    buyerID,
		PurchaseID: purchaseID,
		CreatedAt:  time.UnixMilli(createdAt.UnixMilli()),
		SellerID:   sellerID,
	}
}

func (k PurchaseKey) String() string {
	b := make([]byte, 0, 48)
	b = strconv.AppendUint(b, k.BuyerID, 10)
	b = append(b, 'p')
	b = strconv.AppendUint(b, k.PurchaseID, 10)
	b = append(b, 't')
	b = strconv.AppendInt(b, k.CreatedAt.UnixMilli(), 10)
	if k.SellerID > 0 {
		b = append(b, 's')
		b = strconv.AppendUint(b, k.SellerID, 10)
	}
	return string(b)
}

// HasSeller reports whether a marketplace seller is the payee.
func (k PurchaseKey) HasSeller() bool {
	return k.SellerID > 0
}

// Leading zeros are rejected so that every key has exactly one string form.
var keyPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)p(0|[1-9][0-9]*)t(0|[1-9][0-9]*)(?:s([1-9][0-9]*))?$`)

// ParseKey parses a string produced by PurchaseKey.String.
func ParseKey(s string) (PurchaseKey, error) {
	var k PurchaseKey
	m := keyPattern.FindStringSubmatch(s)
	if m == nil {
		return k, constant.Errorf(constant.CodeBadCorrelationKey, "malformed key %q", s)
	}
	var err error
	if k.BuyerID, err = strconv.ParseUint(m[1], 10, 64); err != nil {
		return k, constant.Wrap(constant.CodeBadCorrelationKey, err, "buyer of %q", s)
	}
	if k.PurchaseID, err = strconv.ParseUint(m[2], 10, 64); err != nil {
		return k, constant.Wrap(constant.CodeBadCorrelationKey, err, "purchase of %q", s)
	}
	ms, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return k, constant.Wrap(constant.CodeBadCorrelationKey, err, "time of %q", s)
	}
	k.CreatedAt = time.UnixMilli(ms)
	if m[4] != "" {
		if k.SellerID, err = strconv.ParseUint(m[4], 10, 64); err != nil {
			return k, constant.Wrap(constant.CodeBadCorrelationKey, err, "seller of %q", s)
		}
	}
	return k, nil
}
