package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"wht-store-pay/internal/constant"
	"wht-store-pay/internal/dto"
	"wht-store-pay/internal/utils"
)

const (
	ModeSandbox = "sandbox"
	ModeLive    = "live"

	// tokens are refreshed this long before PayPal expires them
	tokenSkew = time.Minute
)

// ObserveFunc receives the outcome of every gateway call.
type ObserveFunc func(op, outcome string, elapsed time.Duration)

type Options struct {
	SandboxURL    string
	LiveURL       string
	Timeout       time.Duration
	RetryTimes    int
	RetryInterval time.Duration
	PriceDecimals int32
	HTTPClient    *http.Client
	Observe       ObserveFunc
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// PayPalClient talks to the PayPal REST v1 payments API.
type PayPalClient struct {
	opts   Options
	client *http.Client

	mu     sync.Mutex
	tokens map[string]cachedToken
	sf     singleflight.Group

	now func() time.Time
}

func NewPayPalClient(opts Options) *PayPalClient {
	if opts.RetryTimes < 1 {
		opts.RetryTimes = 1
	}
	if opts.PriceDecimals <= 0 {
		opts.PriceDecimals = 2
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &PayPalClient{
		opts:   opts,
		client: client,
		tokens: make(map[string]cachedToken),
		now:    time.Now,
	}
}

func (p *PayPalClient) baseURL(mode string) string {
	if mode == ModeLive {
		return strings.TrimRight(p.opts.LiveURL, "/")
	}
	return strings.TrimRight(p.opts.SandboxURL, "/")
}

func (p *PayPalClient) CreatePayment(ctx context.Context, creds dto.GatewayCredentials, req CreateRequest) (*CreateResult, error) {
	if req.Invoice == nil {
		return nil, constant.Errorf(constant.CodeSystemError, "nil invoice")
	}
	body := p.buildPayment(req)
	var resp ppPaymentResp
	err := p.call(ctx, "create", creds, http.MethodPost, "/v1/payments/payment", req.RequestID, body, &resp)
	if err != nil {
		return nil, err
	}
	for _, l := range resp.Links {
		if strings.EqualFold(l.Rel, "approval_url") {
			return &CreateResult{PaymentID: resp.ID, ApprovalURL: l.Href}, nil
		}
	}
	return nil, constant.Errorf(constant.CodeGatewayError, "payment %s has no approval_url link", resp.ID)
}

func (p *PayPalClient) ExecutePayment(ctx context.Context, creds dto.GatewayCredentials, paymentID, payerID string) (*ExecuteResult, error) {
	path := "/v1/payments/payment/" + url.PathEscape(paymentID) + "/execute"
	var resp ppPaymentResp
	err := p.call(ctx, "execute", creds, http.MethodPost, path, "exec-"+paymentID, ppExecute{PayerID: payerID}, &resp)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(resp.State, "failed") {
		return nil, constant.Errorf(constant.CodeGatewayRejected, "payment %s state %s", paymentID, resp.State)
	}
	id := resp.ID
	if id == "" {
		id = paymentID
	}
	return &ExecuteResult{PaymentID: id, State: resp.State}, nil
}

func (p *PayPalClient) buildPayment(req CreateRequest) ppPayment {
	inv := req.Invoice
	dp := p.opts.PriceDecimals
	details := ppDetails{Subtotal: utils.FormatAmount(inv.Subtotal, dp)}
	if inv.TaxTotal.IsPositive() {
		details.Tax = utils.FormatAmount(inv.TaxTotal, dp)
	}
	lines := inv.Lines()
	items := make([]ppItem, 0, len(lines))
	for _, l := range lines {
		item := ppItem{
			Name:     l.Name,
			Quantity: l.Quantity.Truncate(0).String(),
			Price:    utils.FormatAmount(l.Price, dp),
			Currency: inv.Currency,
		}
		if l.TaxTotal.IsPositive() {
			item.Tax = utils.FormatAmount(l.TaxTotal, dp)
		}
		items = append(items, item)
	}
	return ppPayment{
		Intent: "sale",
		Payer:  ppPayer{PaymentMethod: "paypal"},
		Transactions: []ppTransaction{{
			Amount: ppAmount{
				Total:    utils.FormatAmount(inv.Total, dp),
				Currency: inv.Currency,
				Details:  details,
			},
			ItemList: ppItemList{Items: items},
		}},
		RedirectURLs: ppRedirectURLs{ReturnURL: req.ReturnURL, CancelURL: req.CancelURL},
	}
}

// call runs one authorised API call with retries. 4xx replies other than
// 401/429 are final; a 401 drops the cached token before the next attempt.
// Credentials rejected by the token endpoint are final as well.
func (p *PayPalClient) call(ctx context.Context, op string, creds dto.GatewayCredentials, method, path, requestID string, body, out interface{}) error {
	start := p.now()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	err := utils.DoWithRetryIf(ctx, p.opts.RetryTimes, p.opts.RetryInterval, retryable, func() error {
		token, err := p.token(ctx, creds)
		if err != nil {
			return err
		}
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		if requestID != "" {
			h.Set("PayPal-Request-Id", requestID)
		}
		err = utils.HttpDoJSON(ctx, p.client, method, p.baseURL(creds.Mode)+path, h, body, out)
		var se *utils.HttpStatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
			p.dropToken(creds)
		}
		return classify(op, err)
	})
	if err == nil {
		p.observe(op, "ok", start)
		return nil
	}
	if ctx.Err() != nil && retryable(err) {
		err = constant.Wrap(constant.CodeGatewayTimeout, err, "%s", op)
	}
	p.observe(op, outcome(err), start)
	return err
}

func (p *PayPalClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.Timeout)
}

func (p *PayPalClient) observe(op, outcome string, start time.Time) {
	if p.opts.Observe != nil {
		p.opts.Observe(op, outcome, p.now().Sub(start))
	}
}

func tokenKey(creds dto.GatewayCredentials) string {
	return creds.Mode + ":" + creds.ClientID
}

// token returns a cached access token; concurrent refreshes for the same
// client collapse into one request.
func (p *PayPalClient) token(ctx context.Context, creds dto.GatewayCredentials) (string, error) {
	key := tokenKey(creds)
	p.mu.Lock()
	t, ok := p.tokens[key]
	p.mu.Unlock()
	if ok && p.now().Before(t.expiresAt) {
		return t.value, nil
	}

	v, err, _ := p.sf.Do(key, func() (interface{}, error) {
		// a refresh may have finished between the cache check and Do
		p.mu.Lock()
		t, ok := p.tokens[key]
		p.mu.Unlock()
		if ok && p.now().Before(t.expiresAt) {
			return t.value, nil
		}
		h := http.Header{}
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds.ClientID+":"+creds.ClientSecret)))
		h.Set("Content-Type", "application/x-www-form-urlencoded")
		var resp ppToken
		err := utils.HttpDoJSON(ctx, p.client, http.MethodPost, p.baseURL(creds.Mode)+"/v1/oauth2/token", h,
			[]byte("grant_type=client_credentials"), &resp)
		if err != nil {
			var se *utils.HttpStatusError
			if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
				// 凭证错误，不重试
				return nil, constant.Wrap(constant.CodeGatewayAuthFailed, nil, "token status %d", se.StatusCode)
			}
			return nil, constant.Wrap(constant.CodeGatewayError, err, "token")
		}
		if resp.AccessToken == "" {
			return nil, constant.Errorf(constant.CodeGatewayAuthFailed, "empty access token")
		}
		ttl := time.Duration(resp.ExpiresIn)*time.Second - tokenSkew
		if ttl < 0 {
			ttl = 0
		}
		p.mu.Lock()
		p.tokens[key] = cachedToken{value: resp.AccessToken, expiresAt: p.now().Add(ttl)}
		p.mu.Unlock()
		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *PayPalClient) dropToken(creds dto.GatewayCredentials) {
	p.mu.Lock()
	delete(p.tokens, tokenKey(creds))
	p.mu.Unlock()
}

// classify maps transport and HTTP failures onto gateway error codes.
// The response body is kept in the detail for logs only.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(constant.Error); ok {
		return err
	}
	var se *utils.HttpStatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusUnauthorized:
			// token已失效并被丢弃，下一次尝试会重新获取
			return constant.Wrap(constant.CodeGatewayError, nil, "%s: status 401, token dropped", op)
		case se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500:
			return constant.Wrap(constant.CodeGatewayError, nil, "%s: status %d body %s", op, se.StatusCode, se.Body)
		default:
			return constant.Wrap(constant.CodeGatewayRejected, nil, "%s: status %d body %s", op, se.StatusCode, se.Body)
		}
	}
	return constant.Wrap(constant.CodeGatewayError, err, "%s", op)
}

func retryable(err error) bool {
	return !constant.IsCode(err, constant.CodeGatewayRejected) && !constant.IsCode(err, constant.CodeGatewayAuthFailed)
}

func outcome(err error) string {
	switch constant.CodeOf(err) {
	case constant.CodeGatewayRejected:
		return "rejected"
	case constant.CodeGatewayTimeout:
		return "timeout"
	case constant.CodeGatewayAuthFailed:
		return "auth_failed"
	default:
		return "error"
	}
}

var _ PaymentGateway = (*PayPalClient)(nil)
