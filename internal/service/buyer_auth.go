package service

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"wht-store-pay/internal/constant"
	"wht-store-pay/internal/dao"
	"wht-store-pay/internal/dto"
)

// BuyerCookie carries the buyer session token set by the storefront.
const BuyerCookie = "buyer_token"

// BuyerClaims is the payload of a buyer session token; Subject is the buyer id.
type BuyerClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenBuyerAuth authenticates buyers by an HS256 session token taken from
// the buyer cookie or an Authorization bearer header.
type TokenBuyerAuth struct {
	Secret []byte
	// DB, when set, is used to confirm the buyer still exists.
	DB *gorm.DB
}

func (a *TokenBuyerAuth) Authenticate(r *http.Request) (*dto.Buyer, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return nil, nil
	}
	claims := &BuyerClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		// 无效令牌按匿名处理，由调用方上报
		return nil, nil
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, nil
	}
	buyer := &dto.Buyer{ID: id, Name: claims.Name}
	if a.DB == nil {
		return buyer, nil
	}
	b, err := dao.NewStoreDaoWithDB(a.DB).GetBuyer(id)
	if err != nil {
		return nil, constant.Wrap(constant.CodeDatabaseError, err, "get buyer %d", id)
	}
	if b == nil {
		return nil, nil
	}
	buyer.Name = b.Name
	return buyer, nil
}

func tokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if c, err := r.Cookie(BuyerCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
