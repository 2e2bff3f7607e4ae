package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wht-store-pay/internal/dto"
	mainmodel "wht-store-pay/internal/model/main"
	ordermodel "wht-store-pay/internal/model/order"
)

var testSecret = []byte("buyer-secret")

func signBuyer(t *testing.T, secret []byte, method jwt.SigningMethod, claims BuyerClaims) string {
	s, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func buyerClaims(sub string, ttl time.Duration) BuyerClaims {
	return BuyerClaims{Name: "Ann", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}}
}

func TestTokenBuyerAuth(t *testing.T) {
	auth := &TokenBuyerAuth{Secret: testSecret}
	valid := signBuyer(t, testSecret, jwt.SigningMethodHS256, buyerClaims("42", time.Hour))

	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ppl", nil)
		r.AddCookie(&http.Cookie{Name: BuyerCookie, Value: valid})
		b, err := auth.Authenticate(r)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.EqualValues(t, 42, b.ID)
		assert.Equal(t, "Ann", b.Name)
	})

	t.Run("bearer", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ppl", nil)
		r.Header.Set("Authorization", "Bearer "+valid)
		b, err := auth.Authenticate(r)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.EqualValues(t, 42, b.ID)
	})

	anonymous := map[string]string{
		"no token":     "",
		"garbage":      "not.a.token",
		"expired":      signBuyer(t, testSecret, jwt.SigningMethodHS256, buyerClaims("42", -time.Minute)),
		"wrong secret": signBuyer(t, []byte("other"), jwt.SigningMethodHS256, buyerClaims("42", time.Hour)),
		"wrong alg":    signBuyer(t, testSecret, jwt.SigningMethodHS512, buyerClaims("42", time.Hour)),
		"no expiry":    signBuyer(t, testSecret, jwt.SigningMethodHS256, BuyerClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}}),
		"bad subject":  signBuyer(t, testSecret, jwt.SigningMethodHS256, buyerClaims("ann", time.Hour)),
		"zero subject": signBuyer(t, testSecret, jwt.SigningMethodHS256, buyerClaims("0", time.Hour)),
	}
	for name, token := range anonymous {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ppl", nil)
			if token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
			b, err := auth.Authenticate(r)
			assert.NoError(t, err)
			assert.Nil(t, b)
		})
	}
}

func TestTokenBuyerAuthChecksStore(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&mainmodel.Buyer{ID: 42, Name: "Ann Store"}).Error)
	auth := &TokenBuyerAuth{Secret: testSecret, DB: db}

	r := httptest.NewRequest(http.MethodGet, "/ppl", nil)
	r.Header.Set("Authorization", "Bearer "+signBuyer(t, testSecret, jwt.SigningMethodHS256, buyerClaims("42", time.Hour)))
	b, err := auth.Authenticate(r)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Ann Store", b.Name)

	r = httptest.NewRequest(http.MethodGet, "/ppl", nil)
	r.Header.Set("Authorization", "Bearer "+signBuyer(t, testSecret, jwt.SigningMethodHS256, buyerClaims("43", time.Hour)))
	b, err = auth.Authenticate(r)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestStoreCollaborators(t *testing.T) {
	db := newTestDB(t)
	seedCart(t, db, 42, false)
	seedOwnerOrder(t, db, 1, 42, ordermodel.StatusNew, ordermodel.PayPaypal, "USD")
	seedSellerOrder(t, db, 2, 42, 9, ordermodel.StatusNew, ordermodel.PayCash, "USD")
	// another buyer's order is untouched
	seedOwnerOrder(t, db, 3, 43, ordermodel.StatusNew, ordermodel.PayPaypal, "USD")

	acceptor := StoreOrderAcceptor{NewID: func() uint64 { return 77 }}
	p, err := acceptor.AcceptOrders(db, dto.Buyer{ID: 42})
	require.NoError(t, err)
	assert.EqualValues(t, 77, p.ID)
	require.Len(t, p.Orders, 1)
	require.Len(t, p.SellerOrders, 1)
	assert.EqualValues(t, 77, p.Orders[0].PurchaseID)
	assert.EqualValues(t, 1, p.Orders[0].Version)
	assert.Equal(t, ordermodel.StatusNew, ownerStatus(t, db, 3))

	require.NoError(t, StoreOrderCanceller{}.CancelOrders(db, 42, 77, ordermodel.StatusBooked, ordermodel.StatusNew))
	assert.Equal(t, ordermodel.StatusNew, ownerStatus(t, db, 1))
	assert.Equal(t, ordermodel.StatusNew, sellerStatus(t, db, 2))

	carts := StoreCartService{}
	c, err := carts.GetCart(db, dto.Buyer{ID: 42})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.False(t, c.HasError)

	c, err = carts.GetCart(db, dto.Buyer{ID: 43})
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, carts.EmptyCart(db, 42))
	var n int64
	require.NoError(t, db.Model(&mainmodel.CartLine{}).Where("buyer_id = ?", 42).Count(&n).Error)
	assert.Zero(t, n)
}
