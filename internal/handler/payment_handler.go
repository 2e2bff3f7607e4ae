package handler

import (
	"context"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wht-store-pay/internal/constant"
	"wht-store-pay/internal/dto"
	"wht-store-pay/internal/middleware"
	"wht-store-pay/internal/utils"
)

// PaymentEngine is the reconciliation entry point behind the payment endpoint.
type PaymentEngine interface {
	Handle(ctx context.Context, req *dto.PaymentRequest) (*dto.PaymentResult, error)
}

// PaymentHandler PayPal 支付入口
type PaymentHandler struct {
	engine    PaymentEngine
	publicURL string
	resultURL string
	proxies   []*net.IPNet
}

// NewPaymentHandler builds the handler. publicURL is the configured address
// of the payment endpoint, never taken from the request Host. trustedProxies
// (ips or cidrs) may vouch for https through X-Forwarded-Proto; resultURL is
// the payment result view.
func NewPaymentHandler(engine PaymentEngine, publicURL, resultURL string, trustedProxies []string) *PaymentHandler {
	h := &PaymentHandler{engine: engine, publicURL: publicURL, resultURL: resultURL}
	for _, p := range trustedProxies {
		if !strings.Contains(p, "/") {
			if ip := net.ParseIP(p); ip != nil && ip.To4() != nil {
				p += "/32"
			} else {
				p += "/128"
			}
		}
		if _, n, err := net.ParseCIDR(p); err == nil {
			h.proxies = append(h.proxies, n)
		} else {
			log.Printf("[Payment] 忽略无效的可信代理: %s", p)
		}
	}
	return h
}

// Payment handles GET (browser redirects) and POST (json) on the payment endpoint.
func (h *PaymentHandler) Payment(c *gin.Context) {
	audit := middleware.Audit(c)

	var q dto.PaymentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		audit.Status = "failed"
		audit.ErrorMsg = err.Error()
		h.fail(c, constant.CodeInvalidParams, audit.TraceID)
		return
	}

	req := &dto.PaymentRequest{
		Secure:       h.secure(c),
		BaseURL:      h.publicURL,
		PayerID:      q.Payer(),
		PaymentID:    q.Payment(),
		Correlation:  q.Purchase,
		Cancel:       q.Cancel == "1",
		ProcRedirect: q.ProcRedirect,
		HTTP:         c.Request,
	}

	res, err := h.engine.Handle(c.Request.Context(), req)
	if err != nil {
		audit.Status = "failed"
		audit.ErrorMsg = err.Error()
		h.fail(c, constant.CodeOf(err), audit.TraceID)
		return
	}
	audit.PaymentID = res.PaymentID
	audit.Status = res.Status

	if c.Request.Method == http.MethodPost {
		c.JSON(http.StatusOK, utils.Success(res))
		return
	}
	if res.RedirectURL != "" {
		c.Redirect(http.StatusFound, res.RedirectURL)
		return
	}
	v := url.Values{}
	v.Set("status", res.Status)
	if res.PaymentID != "" {
		v.Set("paymentId", res.PaymentID)
	}
	c.Redirect(http.StatusFound, h.withQuery(v))
}

// fail 只返回错误码与公开描述，不泄露内部信息
func (h *PaymentHandler) fail(c *gin.Context, code int, traceID string) {
	if c.Request.Method == http.MethodPost {
		c.JSON(http.StatusOK, utils.ErrorWithTrace(code, traceID))
		return
	}
	v := url.Values{}
	v.Set("status", "error")
	v.Set("code", strconv.Itoa(code))
	c.Redirect(http.StatusFound, h.withQuery(v))
}

func (h *PaymentHandler) withQuery(v url.Values) string {
	sep := "?"
	if strings.Contains(h.resultURL, "?") {
		sep = "&"
	}
	return h.resultURL + sep + v.Encode()
}

// secure reports whether the buyer reached us over TLS, directly or through
// a trusted proxy that says so.
func (h *PaymentHandler) secure(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	if !strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		return false
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(c.Request.RemoteAddr))
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range h.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Result is a minimal payment result view for deployments without a storefront page.
func (h *PaymentHandler) Result(c *gin.Context) {
	code, _ := strconv.Atoi(c.Query("code"))
	data := gin.H{"status": c.Query("status"), "paymentId": c.Query("paymentId")}
	if code != 0 {
		resp := utils.ErrorWithTrace(code, middleware.TraceID(c))
		resp.Data = data
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusOK, utils.Success(data))
}
