package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wht-store-pay/internal/constant"
	"wht-store-pay/internal/dto"
)

type fakePayPal struct {
	t          *testing.T
	tokenCalls int32
	apiCalls   int32
	// status returned by API calls, 0 means success
	apiStatus  int32
	unauthOnce int32
	tokenDelay time.Duration

	mu        sync.Mutex
	lastBody  map[string]interface{}
	lastReqID string
}

func (f *fakePayPal) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		id, secret, ok := r.BasicAuth()
		if !ok || id != "cid" || secret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b, _ := io.ReadAll(r.Body)
		assert.Equal(f.t, "grant_type=client_credentials", string(b))
		if f.tokenDelay > 0 {
			time.Sleep(f.tokenDelay)
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		if !f.api(w, r) {
			return
		}
		_, _ = w.Write([]byte(`{"id":"PAY-1","state":"created","links":[
			{"href":"https://example.test/self","rel":"self"},
			{"href":"https://example.test/approve?token=EC-1","rel":"approval_url","method":"REDIRECT"}]}`))
	})
	mux.HandleFunc("/v1/payments/payment/PAY-1/execute", func(w http.ResponseWriter, r *http.Request) {
		if !f.api(w, r) {
			return
		}
		_, _ = w.Write([]byte(`{"id":"PAY-1","state":"approved"}`))
	})
	return mux
}

func (f *fakePayPal) api(w http.ResponseWriter, r *http.Request) bool {
	atomic.AddInt32(&f.apiCalls, 1)
	if atomic.CompareAndSwapInt32(&f.unauthOnce, 1, 0) {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	assert.Equal(f.t, "Bearer tok", r.Header.Get("Authorization"))
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.lastBody = body
	f.lastReqID = r.Header.Get("PayPal-Request-Id")
	f.mu.Unlock()
	if st := atomic.LoadInt32(&f.apiStatus); st != 0 {
		w.WriteHeader(int(st))
		_, _ = w.Write([]byte(`{"name":"ERR"}`))
		return false
	}
	return true
}

func newTestClient(t *testing.T) (*PayPalClient, *fakePayPal) {
	f := &fakePayPal{t: t}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := NewPayPalClient(Options{
		SandboxURL:    srv.URL,
		LiveURL:       srv.URL,
		Timeout:       5 * time.Second,
		RetryTimes:    3,
		RetryInterval: time.Millisecond,
		PriceDecimals: 2,
	})
	return c, f
}

var creds = dto.GatewayCredentials{Mode: ModeSandbox, ClientID: "cid", ClientSecret: "secret"}

func sampleInvoice() *dto.Invoice {
	return &dto.Invoice{
		Currency: "USD",
		Goods: []dto.InvoiceLine{{
			Name:     "Mug",
			Price:    decimal.RequireFromString("3"),
			Quantity: decimal.RequireFromString("2.000"),
			Subtotal: decimal.RequireFromString("6"),
			Total:    decimal.RequireFromString("6"),
			TaxTotal: decimal.Zero,
		}},
		Services: []dto.InvoiceLine{{
			Name:     "Gift wrap",
			Price:    decimal.RequireFromString("1.5"),
			Quantity: decimal.NewFromInt(1),
			Subtotal: decimal.RequireFromString("1.5"),
			Total:    decimal.RequireFromString("1.65"),
			TaxTotal: decimal.RequireFromString("0.15"),
		}},
		Subtotal: decimal.RequireFromString("7.5"),
		TaxTotal: decimal.RequireFromString("0.15"),
		Total:    decimal.RequireFromString("7.65"),
	}
}

func TestCreatePayment(t *testing.T) {
	c, f := newTestClient(t)
	res, err := c.CreatePayment(context.Background(), creds, CreateRequest{
		Invoice:   sampleInvoice(),
		ReturnURL: "https://shop.test/ppl?pur=1p2t3",
		CancelURL: "https://shop.test/ppl?pur=1p2t3&cnc=1",
		RequestID: "1p2t3",
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", res.PaymentID)
	assert.Equal(t, "https://example.test/approve?token=EC-1", res.ApprovalURL)
	assert.Equal(t, "1p2t3", f.lastReqID)

	body := f.lastBody
	assert.Equal(t, "sale", body["intent"])
	tx := body["transactions"].([]interface{})[0].(map[string]interface{})
	amount := tx["amount"].(map[string]interface{})
	assert.Equal(t, "7.65", amount["total"])
	assert.Equal(t, "USD", amount["currency"])
	details := amount["details"].(map[string]interface{})
	assert.Equal(t, "7.50", details["subtotal"])
	assert.Equal(t, "0.15", details["tax"])

	items := tx["item_list"].(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, 2)
	mug := items[0].(map[string]interface{})
	assert.Equal(t, "2", mug["quantity"])
	assert.Equal(t, "3.00", mug["price"])
	_, hasTax := mug["tax"]
	assert.False(t, hasTax)
	wrap := items[1].(map[string]interface{})
	assert.Equal(t, "0.15", wrap["tax"])

	redirect := body["redirect_urls"].(map[string]interface{})
	assert.True(t, strings.HasSuffix(redirect["cancel_url"].(string), "&cnc=1"))
}

func TestTokenIsCachedAndShared(t *testing.T) {
	c, f := newTestClient(t)
	f.tokenDelay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ExecutePayment(context.Background(), creds, "PAY-1", "PAYER-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.tokenCalls))
	assert.Equal(t, int32(8), atomic.LoadInt32(&f.apiCalls))
}

func TestExecutePayment(t *testing.T) {
	c, f := newTestClient(t)
	res, err := c.ExecutePayment(context.Background(), creds, "PAY-1", "PAYER-1")
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", res.PaymentID)
	assert.Equal(t, "approved", res.State)
	assert.Equal(t, "PAYER-1", f.lastBody["payer_id"])
	assert.Equal(t, "exec-PAY-1", f.lastReqID)
}

func TestRejectedIsNotRetried(t *testing.T) {
	c, f := newTestClient(t)
	f.apiStatus = http.StatusBadRequest
	_, err := c.ExecutePayment(context.Background(), creds, "PAY-1", "PAYER-1")
	assert.True(t, constant.IsCode(err, constant.CodeGatewayRejected))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.apiCalls))
}

func TestServerErrorIsRetried(t *testing.T) {
	c, f := newTestClient(t)
	f.apiStatus = http.StatusBadGateway
	_, err := c.ExecutePayment(context.Background(), creds, "PAY-1", "PAYER-1")
	assert.True(t, constant.IsCode(err, constant.CodeGatewayError))
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.apiCalls))
}

func TestUnauthorizedRefreshesToken(t *testing.T) {
	c, f := newTestClient(t)
	_, err := c.ExecutePayment(context.Background(), creds, "PAY-1", "PAYER-1")
	require.NoError(t, err)

	f.unauthOnce = 1
	_, err = c.ExecutePayment(context.Background(), creds, "PAY-1", "PAYER-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.tokenCalls))
}

func TestBadCredentials(t *testing.T) {
	c, _ := newTestClient(t)
	bad := creds
	bad.ClientSecret = "nope"
	_, err := c.CreatePayment(context.Background(), bad, CreateRequest{Invoice: sampleInvoice()})
	assert.True(t, constant.IsCode(err, constant.CodeGatewayAuthFailed))
	assert.NotContains(t, err.Error(), "nope")
}

func TestBadCredentialsAreNotRetried(t *testing.T) {
	c, f := newTestClient(t)
	bad := creds
	bad.ClientSecret = "nope"
	_, err := c.ExecutePayment(context.Background(), bad, "PAY-1", "PAYER-1")
	assert.True(t, constant.IsCode(err, constant.CodeGatewayAuthFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.tokenCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.apiCalls))
}

func TestObserveIsCalled(t *testing.T) {
	c, _ := newTestClient(t)
	var got []string
	c.opts.Observe = func(op, outcome string, _ time.Duration) { got = append(got, op+":"+outcome) }
	_, err := c.ExecutePayment(context.Background(), creds, "PAY-1", "PAYER-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"execute:ok"}, got)
}
