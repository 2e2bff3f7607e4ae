package service

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wht-store-pay/internal/constant"
	"wht-store-pay/internal/dao"
	"wht-store-pay/internal/dto"
	"wht-store-pay/internal/event"
	"wht-store-pay/internal/gateway"
	"wht-store-pay/internal/metrics"
	ordermodel "wht-store-pay/internal/model/order"
	"wht-store-pay/internal/notify"
	"wht-store-pay/internal/registry"
)

// 请求阶段
const (
	PhaseCreate  = "create"
	PhaseExecute = "execute"
	PhaseCancel  = "cancel"
)

// Deps wires a PaymentService. Zero-valued optional fields get defaults.
type Deps struct {
	DB        *gorm.DB
	Isolation sql.IsolationLevel
	Registry  registry.Registry
	Gateway   gateway.PaymentGateway
	Resolver  *PayeeResolver
	Builder   *Consolidator

	Auth      BuyerAuthenticator
	Carts     CartService
	Acceptor  OrderAcceptor
	Canceller OrderCanceller
	Abuse     AbuseReporter

	Publisher event.Publisher
	Metrics   *metrics.PaymentMetrics
	Log       *logrus.Logger

	SweepInterval time.Duration
	StaleAfter    time.Duration
	Now           func() time.Time
}

// PaymentService reconciles store purchases with gateway payments.
// It keeps no state besides the registry and the last sweep time.
type PaymentService struct {
	Deps

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func NewPaymentService(d Deps) *PaymentService {
	if d.Carts == nil {
		d.Carts = StoreCartService{}
	}
	if d.Canceller == nil {
		d.Canceller = StoreOrderCanceller{}
	}
	if d.Abuse == nil {
		d.Abuse = SecLogAbuseReporter{Log: d.Log}
	}
	if d.Publisher == nil {
		d.Publisher = event.NopPublisher{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &PaymentService{Deps: d}
}

// Handle dispatches one request: a payer id means execute, a correlation key
// alone means cancel or return, neither means create.
func (s *PaymentService) Handle(ctx context.Context, req *dto.PaymentRequest) (*dto.PaymentResult, error) {
	if !req.Secure {
		s.Log.WithField("url", req.BaseURL).Error("payment request over plain http")
		return nil, constant.Errorf(constant.CodeInsecureTransport, "request is not https")
	}
	if err := s.sweep(ctx); err != nil {
		return nil, err
	}

	phase := PhaseCreate
	var res *dto.PaymentResult
	var err error
	switch {
	case req.PayerID != "":
		phase = PhaseExecute
		res, err = s.execute(ctx, req)
	case req.Correlation != "":
		phase = PhaseCancel
		res, err = s.cancel(ctx, req)
	default:
		res, err = s.create(ctx, req)
	}
	s.observe(ctx, phase, res, err)
	return res, err
}

func (s *PaymentService) observe(ctx context.Context, phase string, res *dto.PaymentResult, err error) {
	outcome := "ok"
	if err != nil {
		outcome = codeLabel(err)
	} else if res != nil {
		outcome = res.Status
	}
	s.Metrics.ObservePhase(phase, outcome)
	if n, lerr := s.Registry.Len(ctx); lerr == nil {
		s.Metrics.SetPending(n)
	}
}

func codeLabel(err error) string {
	return strconv.Itoa(constant.CodeOf(err))
}

// transaction runs fn in one DB transaction at the configured isolation level.
func (s *PaymentService) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.DB.WithContext(ctx).Transaction(fn, &sql.TxOptions{Isolation: s.Isolation})
}

func (s *PaymentService) authenticate(req *dto.PaymentRequest) (*dto.Buyer, error) {
	buyer, err := s.Auth.Authenticate(req.HTTP)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		s.Abuse.ReportAbuse(req.HTTP, SeverityHigh, "payment request without authenticated buyer")
		return nil, constant.Errorf(constant.CodeBuyerAuthFailed, "no buyer")
	}
	return buyer, nil
}

// ---------------- phase 1 ----------------

func (s *PaymentService) create(ctx context.Context, req *dto.PaymentRequest) (*dto.PaymentResult, error) {
	buyer, err := s.authenticate(req)
	if err != nil {
		return nil, err
	}

	var (
		entry *registry.PendingPayment
		inv   *dto.Invoice
		res   *dto.PaymentResult
	)
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		cart, err := s.Carts.GetCart(tx, *buyer)
		if err != nil {
			return err
		}
		if cart == nil {
			s.Abuse.ReportAbuse(req.HTTP, SeverityMedium, "payment request without cart")
			return constant.Errorf(constant.CodeCartError, "buyer %d has no cart", buyer.ID)
		}
		if cart.HasError {
			return constant.Errorf(constant.CodeCartError, "buyer %d cart: %s", buyer.ID, cart.Description)
		}

		purchase, err := s.Acceptor.AcceptOrders(tx, *buyer)
		if err != nil {
			return err
		}
		payee, err := s.Resolver.Resolve(tx, purchase)
		if err != nil {
			return err
		}
		inv, err = s.Builder.Build(tx, buyer.ID, purchase.ID, payee)
		if err != nil {
			return err
		}

		key := registry.NewPurchaseKey(buyer.ID, purchase.ID, s.Now(), payee.SellerID)
		returnURL, cancelURL := redirectURLs(req, key)
		created, err := s.Gateway.CreatePayment(ctx, payee.Credentials, gateway.CreateRequest{
			Invoice:   inv,
			ReturnURL: returnURL,
			CancelURL: cancelURL,
			RequestID: key.String(),
		})
		if err != nil {
			return err
		}

		p := registry.PendingPayment{Key: key, PaymentID: created.PaymentID, CreatedAt: key.CreatedAt}
		if err := s.Registry.Put(ctx, p); err != nil {
			s.Log.WithFields(logrus.Fields{"key": key.String(), "payment_id": created.PaymentID}).
				Errorf("gateway payment created but not registered: %v", err)
			return err
		}
		entry = &p
		res = &dto.PaymentResult{PaymentID: created.PaymentID, Status: dto.PayStatusCreated, RedirectURL: created.ApprovalURL}
		return nil
	})
	if err != nil {
		if entry != nil {
			// commit failed after the insert; the orders are back to NEW
			if _, terr := s.Registry.Take(ctx, entry.Key, entry.PaymentID); terr != nil {
				s.Log.WithField("key", entry.Key.String()).Errorf("drop uncommitted pending payment: %v", terr)
			}
		}
		s.Log.WithField("buyer_id", buyer.ID).Warnf("create payment failed: %v", err)
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"key":        entry.Key.String(),
		"payment_id": entry.PaymentID,
		"total":      inv.Total.String(),
		"currency":   inv.Currency,
	}).Info("payment created")
	s.publish(dto.TopicPaymentCreated, entry, dto.PayStatusCreated, inv)
	return res, nil
}

// redirectURLs builds the gateway return and cancel URLs; both carry the key.
func redirectURLs(req *dto.PaymentRequest, key registry.PurchaseKey) (string, string) {
	q := url.Values{}
	q.Set("pur", key.String())
	if req.ProcRedirect != "" {
		q.Set("prcRed", req.ProcRedirect)
	}
	returnURL := req.BaseURL + "?" + q.Encode()
	q.Set("cnc", "1")
	return returnURL, req.BaseURL + "?" + q.Encode()
}

// ---------------- phase 2 ----------------

func (s *PaymentService) execute(ctx context.Context, req *dto.PaymentRequest) (*dto.PaymentResult, error) {
	buyer, err := s.authenticate(req)
	if err != nil {
		return nil, err
	}
	if req.PaymentID == "" {
		return nil, constant.Errorf(constant.CodeMissingParams, "paymentId")
	}

	entry, err := s.takeForExecute(ctx, req, buyer)
	if err != nil {
		return nil, err
	}
	key := entry.Key
	log := s.Log.WithFields(logrus.Fields{"key": key.String(), "payment_id": entry.PaymentID})

	var creds dto.GatewayCredentials
	var resolveErr error
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		c, err := s.Resolver.Credentials(tx, key.SellerID)
		if err != nil {
			resolveErr = err
			return s.Canceller.CancelOrders(tx, key.BuyerID, key.PurchaseID, ordermodel.StatusBooked, ordermodel.StatusNew)
		}
		creds = c
		return nil
	})
	if err != nil {
		log.Errorf("resolve credentials failed: %v", err)
		s.restore(ctx, *entry)
		return nil, err
	}
	if resolveErr != nil {
		log.Errorf("credentials unavailable, purchase cancelled: %v", resolveErr)
		s.publish(dto.TopicPaymentCanceled, entry, dto.PayStatusCanceled, nil)
		return nil, resolveErr
	}

	// 网关执行不在数据库事务内
	exec, err := s.Gateway.ExecutePayment(ctx, creds, entry.PaymentID, req.PayerID)
	if err != nil {
		log.Errorf("gateway execute failed: %v", err)
		notify.NotifyGatewayAlert("error", "PayPal execute failed", PhaseExecute, map[string]string{
			"key":     key.String(),
			"payment": entry.PaymentID,
			"code":    codeLabel(err),
		})
		cerr := s.transaction(ctx, func(tx *gorm.DB) error {
			return s.Canceller.CancelOrders(tx, key.BuyerID, key.PurchaseID, ordermodel.StatusBooked, ordermodel.StatusNew)
		})
		if cerr != nil {
			log.Errorf("cancel after gateway failure failed: %v", cerr)
			s.restore(ctx, *entry)
		} else {
			s.publish(dto.TopicPaymentCanceled, entry, dto.PayStatusCanceled, nil)
		}
		return nil, err
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		n, err := dao.NewStoreDaoWithDB(tx).TransitionOrders(key.BuyerID, key.PurchaseID, ordermodel.StatusBooked, ordermodel.StatusPayed, true)
		if err != nil {
			return constant.Wrap(constant.CodeOrderUpdate, err, "mark purchase %d payed", key.PurchaseID)
		}
		if n == 0 {
			log.Warn("executed payment matched no booked orders")
		}
		return s.Carts.EmptyCart(tx, key.BuyerID)
	})
	if err != nil {
		// 网关已扣款但订单未更新，需人工对账
		log.Errorf("payment executed but orders not updated: %v", err)
		notify.NotifyGatewayAlert("error", "PayPal executed, orders not updated", PhaseExecute, map[string]string{
			"key":     key.String(),
			"payment": entry.PaymentID,
		})
		return nil, err
	}

	log.Info("payment executed")
	s.publish(dto.TopicPaymentExecuted, entry, dto.PayStatusExecuted, nil)
	return &dto.PaymentResult{PaymentID: exec.PaymentID, Status: dto.PayStatusExecuted}, nil
}

// takeForExecute finds the pending payment of the request and removes it.
// Only the buyer who created it can take it.
func (s *PaymentService) takeForExecute(ctx context.Context, req *dto.PaymentRequest, buyer *dto.Buyer) (*registry.PendingPayment, error) {
	var key registry.PurchaseKey
	if req.Correlation != "" {
		k, err := registry.ParseKey(req.Correlation)
		if err != nil {
			s.Abuse.ReportAbuse(req.HTTP, SeverityHigh, "malformed correlation key on execute")
			return nil, err
		}
		key = k
	} else {
		k, err := s.Registry.FindByPaymentID(ctx, req.PaymentID)
		if err != nil {
			return nil, err
		}
		if k == nil {
			s.Abuse.ReportAbuse(req.HTTP, SeverityHigh, "execute for unknown payment")
			return nil, constant.Errorf(constant.CodeUnknownPendingPayment, "payment %s", req.PaymentID)
		}
		key = *k
	}
	if key.BuyerID != buyer.ID {
		s.Abuse.ReportAbuse(req.HTTP, SeverityHigh, "execute for another buyer's payment")
		return nil, constant.Errorf(constant.CodeUnknownPendingPayment, "key %s not owned by buyer %d", key.String(), buyer.ID)
	}
	entry, err := s.Registry.Take(ctx, key, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		s.Abuse.ReportAbuse(req.HTTP, SeverityHigh, "execute for unknown or finished payment")
		return nil, constant.Errorf(constant.CodeUnknownPendingPayment, "key %s payment %s", key.String(), req.PaymentID)
	}
	return entry, nil
}

// ---------------- cancel / return ----------------

func (s *PaymentService) cancel(ctx context.Context, req *dto.PaymentRequest) (*dto.PaymentResult, error) {
	status := dto.PayStatusReturn
	if req.Cancel {
		status = dto.PayStatusCanceled
	}
	key, err := registry.ParseKey(req.Correlation)
	if err != nil {
		s.Abuse.ReportAbuse(req.HTTP, SeverityMedium, "malformed correlation key on cancel")
		return nil, err
	}
	log := s.Log.WithField("key", key.String())

	buyer, err := s.Auth.Authenticate(req.HTTP)
	if err != nil {
		return nil, err
	}
	if buyer == nil || buyer.ID != key.BuyerID {
		s.Abuse.ReportAbuse(req.HTTP, SeverityMedium, "cancel by a different or anonymous buyer")
		log.Warn("cancel refused: buyer mismatch")
		return nil, constant.Errorf(constant.CodeBuyerAuthFailed, "key %s not owned by requesting buyer", key.String())
	}

	entry, err := s.Registry.Take(ctx, key, "")
	if err != nil {
		return nil, err
	}
	if entry == nil {
		s.Abuse.ReportAbuse(req.HTTP, SeverityLow, "cancel for unknown or finished payment")
		log.Warn("cancel for absent pending payment")
		return &dto.PaymentResult{Status: status}, nil
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		return s.Canceller.CancelOrders(tx, key.BuyerID, key.PurchaseID, ordermodel.StatusBooked, ordermodel.StatusNew)
	})
	if err != nil {
		log.Errorf("cancel orders failed: %v", err)
		s.restore(ctx, *entry)
		return nil, err
	}
	log.WithField("status", status).Info("payment cancelled by buyer")
	s.publish(dto.TopicPaymentCanceled, entry, status, nil)
	return &dto.PaymentResult{PaymentID: entry.PaymentID, Status: status}, nil
}

// ---------------- sweep ----------------

// sweep cancels pending payments older than StaleAfter, at most once per
// SweepInterval. Errors reach the request that triggered it, and a failed
// sweep runs again on the next request.
func (s *PaymentService) sweep(ctx context.Context) error {
	s.sweepMu.Lock()
	now := s.Now()
	if !s.lastSweep.IsZero() && now.Sub(s.lastSweep) < s.SweepInterval {
		s.sweepMu.Unlock()
		return nil
	}
	s.lastSweep = now
	s.sweepMu.Unlock()

	err := s.sweepStale(ctx, now)
	if err != nil {
		s.sweepMu.Lock()
		if s.lastSweep.Equal(now) {
			s.lastSweep = time.Time{}
		}
		s.sweepMu.Unlock()
	}
	return err
}

// sweepStale cancels whatever TakeStale handed out, even when it also
// reported an error part way through.
func (s *PaymentService) sweepStale(ctx context.Context, now time.Time) error {
	stale, takeErr := s.Registry.TakeStale(ctx, now.Add(-s.StaleAfter))
	if takeErr != nil {
		s.Log.WithField("taken", len(stale)).Errorf("take stale payments failed: %v", takeErr)
	}
	if len(stale) == 0 {
		return takeErr
	}
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		for _, p := range stale {
			if err := s.Canceller.CancelOrders(tx, p.Key.BuyerID, p.Key.PurchaseID, ordermodel.StatusBooked, ordermodel.StatusNew); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		keys := make([]string, 0, len(stale))
		for _, p := range stale {
			keys = append(keys, p.Key.String())
		}
		s.Log.WithField("keys", keys).Errorf("sweep cancel failed: %v", err)
		s.restore(ctx, stale...)
		return err
	}
	s.Metrics.AddSwept(len(stale))
	for i := range stale {
		s.Log.WithFields(logrus.Fields{"key": stale[i].Key.String(), "payment_id": stale[i].PaymentID}).Info("stale payment cancelled")
		s.publish(dto.TopicPaymentExpired, &stale[i], dto.PayStatusCanceled, nil)
	}
	return takeErr
}

// restore puts taken entries back after their cancel did not commit, so the
// orders stay reachable by a later cancel or sweep.
func (s *PaymentService) restore(ctx context.Context, entries ...registry.PendingPayment) {
	for _, p := range entries {
		if err := s.Registry.Put(ctx, p); err != nil {
			// 订单仍为BOOKED且无登记，需人工处理
			s.Log.WithFields(logrus.Fields{"key": p.Key.String(), "payment_id": p.PaymentID}).
				Errorf("restore pending payment failed: %v", err)
			notify.NotifyGatewayAlert("error", "pending payment lost", "restore", map[string]string{
				"key":     p.Key.String(),
				"payment": p.PaymentID,
			})
		}
	}
}

func (s *PaymentService) publish(topic string, p *registry.PendingPayment, status string, inv *dto.Invoice) {
	msg := &dto.PaymentEventMQ{
		CorrelationKey: p.Key.String(),
		PaymentID:      p.PaymentID,
		BuyerID:        p.Key.BuyerID,
		PurchaseID:     p.Key.PurchaseID,
		SellerID:       p.Key.SellerID,
		Status:         status,
		OccurredAt:     s.Now(),
	}
	if inv != nil {
		msg.Amount = inv.Total.String()
		msg.Currency = inv.Currency
	}
	event.PublishPayment(s.Publisher, s.Log, topic, msg)
}
