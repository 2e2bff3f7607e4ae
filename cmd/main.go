package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wht-store-pay/internal/config"
	"wht-store-pay/internal/dal"
	"wht-store-pay/internal/event"
	"wht-store-pay/internal/gateway"
	"wht-store-pay/internal/handler"
	"wht-store-pay/internal/idgen"
	"wht-store-pay/internal/logger"
	"wht-store-pay/internal/metrics"
	"wht-store-pay/internal/middleware"
	"wht-store-pay/internal/mq"
	"wht-store-pay/internal/notify"
	"wht-store-pay/internal/registry"
	"wht-store-pay/internal/service"
)

func main() {
	// load config env
	config.Init()
	logger.InitLogger()

	// init infra
	dal.InitStoreDB()
	idgen.InitFromEnv()
	notify.Init(config.C.Notify.TelegramChatID)

	var reg registry.Registry
	switch config.C.Payment.Registry {
	case "redis":
		dal.InitRedis()
		reg = registry.NewRedisRegistry(dal.RedisClient, "")
	default:
		reg = registry.NewMemoryRegistry()
	}

	var pub event.Publisher = event.NopPublisher{}
	if config.C.RabbitMQ.URL != "" {
		if err := dal.InitRabbitMQ(); err != nil {
			// 事件是旁路通知，broker 不可用不影响支付
			log.Printf("[RabbitMQ] 初始化失败, 事件将丢弃直到重连: %v", err)
		}
		pub = mq.NewPublisher(config.C.RabbitMQ.Exchange)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewPaymentMetrics(promReg)

	gw := gateway.NewPayPalClient(gateway.Options{
		SandboxURL:    config.C.Gateway.SandboxURL,
		LiveURL:       config.C.Gateway.LiveURL,
		Timeout:       config.C.Gateway.Timeout,
		RetryTimes:    config.C.Gateway.Retry.Times,
		RetryInterval: config.C.Gateway.Retry.Interval,
		PriceDecimals: config.C.Payment.PriceDecimals,
		Observe:       m.ObserveGateway,
	})

	svc := service.NewPaymentService(service.Deps{
		DB:        dal.StoreDB,
		Isolation: config.IsolationLevel(config.C.Payment.Isolation),
		Registry:  reg,
		Gateway:   gw,
		Resolver:  service.NewPayeeResolver(config.C.Payment.SingleOnlinePayee),
		Builder: &service.Consolidator{
			PriceDecimals:   config.C.Payment.PriceDecimals,
			InvoiceBasisTax: config.C.Payment.InvoiceBasisTax,
		},
		Auth:          &service.TokenBuyerAuth{Secret: []byte(config.C.Security.BuyerTokenSecret), DB: dal.StoreDB},
		Carts:         service.StoreCartService{},
		Acceptor:      service.StoreOrderAcceptor{NewID: idgen.New},
		Canceller:     service.StoreOrderCanceller{},
		Abuse:         service.SecLogAbuseReporter{Log: logger.Sec},
		Publisher:     pub,
		Metrics:       m,
		Log:           logger.Ppl,
		SweepInterval: config.C.Payment.SweepInterval,
		StaleAfter:    config.C.Payment.StaleAfter,
	})

	// http server
	if config.C.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	// 设置可信代理 IP（如本地或内网）
	if err := r.SetTrustedProxies(config.C.Server.TrustedProxies); err != nil {
		log.Fatalf("trusted proxies: %v", err)
	}
	r.Use(
		middleware.TraceAuditMiddleware(logger.Audit),
		middleware.Recover(logger.Ppl),
		middleware.RequestLogger(logger.NewLogger("access")),
	)

	ph := handler.NewPaymentHandler(svc, config.C.Server.PublicURL, config.C.Server.ResultURL, config.C.Server.TrustedProxies)
	limit := middleware.RateLimit(middleware.NewIPRateLimiter(config.C.RateLimit.RPS, config.C.RateLimit.Burst))
	r.GET("/ppl", limit, ph.Payment)
	r.POST("/ppl", limit, ph.Payment)
	r.GET("/ppl/result", ph.Result)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	addr := ":" + config.C.Server.Port
	log.Printf("listening %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}
