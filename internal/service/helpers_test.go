package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wht-store-pay/internal/dal"
	"wht-store-pay/internal/dto"
	"wht-store-pay/internal/gateway"
	mainmodel "wht-store-pay/internal/model/main"
	ordermodel "wht-store-pay/internal/model/order"
	"wht-store-pay/internal/registry"
)

const testBuyerHeader = "X-Test-Buyer"

func newTestDB(t *testing.T) *gorm.DB {
	db, err := dal.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, dal.AutoMigrateStore(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ---------------- fixtures ----------------

func seedOwnerPayMethod(t *testing.T, db *gorm.DB, id uint64) {
	require.NoError(t, db.Create(&mainmodel.PayMethod{
		ID: id, Name: mainmodel.PayMethodName, Mode: "sandbox", ClientID: "owner-cid", ClientSecret: "owner-secret",
	}).Error)
}

func seedSellerPayMethod(t *testing.T, db *gorm.DB, id, sellerID uint64) {
	require.NoError(t, db.Create(&mainmodel.SellerPayMethod{
		ID: id, SellerID: sellerID, Name: mainmodel.PayMethodName, Mode: "live",
		ClientID: "seller-cid-" + strconv.FormatUint(sellerID, 10), ClientSecret: "seller-secret",
	}).Error)
}

func seedCart(t *testing.T, db *gorm.DB, buyerID uint64, hasError bool) {
	require.NoError(t, db.Create(&mainmodel.Cart{BuyerID: buyerID, Currency: "USD", HasError: hasError, Description: "price changed"}).Error)
	require.NoError(t, db.Create(&mainmodel.CartLine{BuyerID: buyerID, ItemName: "Mug", Quantity: dec("2"), Total: dec("22")}).Error)
}

func seedOwnerOrder(t *testing.T, db *gorm.DB, id, buyerID uint64, status ordermodel.OrderStatus, pm ordermodel.PayMethod, currency string) {
	require.NoError(t, db.Create(&ordermodel.CustomerOrder{OrderBase: ordermodel.OrderBase{
		ID: id, BuyerID: buyerID, Status: status, PayMethod: pm, Currency: currency,
	}}).Error)
}

func seedSellerOrder(t *testing.T, db *gorm.DB, id, buyerID, sellerID uint64, status ordermodel.OrderStatus, pm ordermodel.PayMethod, currency string) {
	require.NoError(t, db.Create(&ordermodel.SellerOrder{SellerID: sellerID, OrderBase: ordermodel.OrderBase{
		ID: id, BuyerID: buyerID, Status: status, PayMethod: pm, Currency: currency,
	}}).Error)
}

func seedLine(t *testing.T, db *gorm.DB, table string, id, orderID uint64, name, price, qty, subtotal, tax, total string) {
	require.NoError(t, db.Table(table).Create(&ordermodel.OrderLine{
		ID: id, OrderID: orderID, Name: name,
		Price: dec(price), Quantity: dec(qty), Subtotal: dec(subtotal), TaxTotal: dec(tax), Total: dec(total),
	}).Error)
}

func ownerStatus(t *testing.T, db *gorm.DB, id uint64) ordermodel.OrderStatus {
	var o ordermodel.CustomerOrder
	require.NoError(t, db.First(&o, id).Error)
	return o.Status
}

func sellerStatus(t *testing.T, db *gorm.DB, id uint64) ordermodel.OrderStatus {
	var o ordermodel.SellerOrder
	require.NoError(t, db.First(&o, id).Error)
	return o.Status
}

// ---------------- fakes ----------------

type headerAuth struct{}

func (headerAuth) Authenticate(r *http.Request) (*dto.Buyer, error) {
	if r == nil {
		return nil, nil
	}
	id, err := strconv.ParseUint(r.Header.Get(testBuyerHeader), 10, 64)
	if err != nil {
		return nil, nil
	}
	return &dto.Buyer{ID: id}, nil
}

type abuseCall struct {
	severity int
	message  string
}

type recordingAbuse struct {
	mu    sync.Mutex
	calls []abuseCall
}

func (a *recordingAbuse) ReportAbuse(_ *http.Request, severity int, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, abuseCall{severity, message})
}

func (a *recordingAbuse) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []*dto.PaymentEventMQ
}

func (p *recordingPublisher) Publish(topic string, msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	if m, ok := msg.(*dto.PaymentEventMQ); ok {
		p.msgs = append(p.msgs, m)
	}
	return nil
}

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type fakeGateway struct {
	createCalls  int32
	executeCalls int32
	createErr    error
	executeErr   error
	// executeDelay widens the race window in concurrency tests
	executeDelay time.Duration

	mu         sync.Mutex
	lastCreate gateway.CreateRequest
	lastCreds  dto.GatewayCredentials
}

func (g *fakeGateway) CreatePayment(_ context.Context, creds dto.GatewayCredentials, req gateway.CreateRequest) (*gateway.CreateResult, error) {
	n := atomic.AddInt32(&g.createCalls, 1)
	g.mu.Lock()
	g.lastCreate = req
	g.lastCreds = creds
	g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	id := "PAY-" + strconv.Itoa(int(n))
	return &gateway.CreateResult{PaymentID: id, ApprovalURL: "https://gw.test/approve/" + id}, nil
}

func (g *fakeGateway) ExecutePayment(_ context.Context, creds dto.GatewayCredentials, paymentID, _ string) (*gateway.ExecuteResult, error) {
	atomic.AddInt32(&g.executeCalls, 1)
	g.mu.Lock()
	g.lastCreds = creds
	g.mu.Unlock()
	if g.executeDelay > 0 {
		time.Sleep(g.executeDelay)
	}
	if g.executeErr != nil {
		return nil, g.executeErr
	}
	return &gateway.ExecuteResult{PaymentID: paymentID, State: "approved"}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errBoom = errors.New("boom")

// flakyCanceller fails the first `fails` cancels, then cancels for real.
type flakyCanceller struct {
	fails int32
	calls int32
}

func (c *flakyCanceller) CancelOrders(tx *gorm.DB, buyerID, purchaseID uint64, from, to ordermodel.OrderStatus) error {
	atomic.AddInt32(&c.calls, 1)
	if atomic.AddInt32(&c.fails, -1) >= 0 {
		return errBoom
	}
	return StoreOrderCanceller{}.CancelOrders(tx, buyerID, purchaseID, from, to)
}

func withCanceller(c OrderCanceller) harnessOption {
	return func(d *Deps) { d.Canceller = c }
}

// brokenStaleRegistry hands out the stale entries it managed to take and
// reports an error alongside them, once.
type brokenStaleRegistry struct {
	registry.Registry
	failed int32
}

func (r *brokenStaleRegistry) TakeStale(ctx context.Context, cutoff time.Time) ([]registry.PendingPayment, error) {
	out, err := r.Registry.TakeStale(ctx, cutoff)
	if err != nil {
		return out, err
	}
	if len(out) > 0 && atomic.CompareAndSwapInt32(&r.failed, 0, 1) {
		return out, errBoom
	}
	return out, nil
}

func withBrokenTakeStale(d *Deps) {
	d.Registry = &brokenStaleRegistry{Registry: d.Registry}
}

// ---------------- harness ----------------

type harness struct {
	db    *gorm.DB
	svc   *PaymentService
	reg   *registry.MemoryRegistry
	gw    *fakeGateway
	abuse *recordingAbuse
	pub   *recordingPublisher
	clock *fakeClock
}

type harnessOption func(*Deps)

func withSingleOnlinePayee(d *Deps) { d.Resolver.SingleOnlinePayee = true }

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	h := &harness{
		db:    newTestDB(t),
		reg:   registry.NewMemoryRegistry(),
		gw:    &fakeGateway{},
		abuse: &recordingAbuse{},
		pub:   &recordingPublisher{},
		clock: &fakeClock{now: time.UnixMilli(1700000000000)},
	}
	var nextPurchase uint64 = 6
	d := Deps{
		DB:        h.db,
		Isolation: sql.LevelDefault,
		Registry:  h.reg,
		Gateway:   h.gw,
		Resolver:  NewPayeeResolver(false),
		Builder:   &Consolidator{PriceDecimals: 2, InvoiceBasisTax: InvoiceBasisReject},
		Auth:      headerAuth{},
		Acceptor: StoreOrderAcceptor{NewID: func() uint64 {
			return atomic.AddUint64(&nextPurchase, 1)
		}},
		Abuse:         h.abuse,
		Publisher:     h.pub,
		Log:           quietLogger(),
		SweepInterval: 20 * time.Minute,
		StaleAfter:    20 * time.Minute,
		Now:           h.clock.Now,
	}
	for _, o := range opts {
		o(&d)
	}
	h.svc = NewPaymentService(d)
	return h
}

func request(buyerID uint64, query string) *dto.PaymentRequest {
	r := httptest.NewRequest(http.MethodGet, "https://shop.test/ppl?"+query, nil)
	if buyerID > 0 {
		r.Header.Set(testBuyerHeader, strconv.FormatUint(buyerID, 10))
	}
	return &dto.PaymentRequest{Secure: true, BaseURL: "https://shop.test/ppl", HTTP: r}
}

func createReq(buyerID uint64) *dto.PaymentRequest { return request(buyerID, "") }

func executeReq(buyerID uint64, paymentID, key string) *dto.PaymentRequest {
	req := request(buyerID, "")
	req.PayerID = "PAYER-1"
	req.PaymentID = paymentID
	req.Correlation = key
	return req
}

func cancelReq(buyerID uint64, key string, cancel bool) *dto.PaymentRequest {
	req := request(buyerID, "")
	req.Correlation = key
	req.Cancel = cancel
	return req
}

// seedExampleBuyer sets up buyer 42: one owner PayPal order with a
// good line of qty 2, unit price 10, tax 2, total 22.
func seedExampleBuyer(t *testing.T, db *gorm.DB) {
	seedOwnerPayMethod(t, db, 1)
	seedCart(t, db, 42, false)
	seedOwnerOrder(t, db, 1, 42, ordermodel.StatusNew, ordermodel.PayPaypal, "USD")
	seedLine(t, db, ordermodel.TableOwnerGoodLine, 1, 1, "Mug", "10", "2", "20", "2", "22")
}
