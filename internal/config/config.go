package config

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	ResultURL      string   `mapstructure:"resultUrl"`
	// PublicURL is the absolute https url of the payment endpoint; the
	// gateway return and cancel urls are built on it
	PublicURL      string   `mapstructure:"publicUrl"`
	TrustedProxies []string `mapstructure:"trustedProxies"`
}
type MysqlCfg struct {
	Driver       string `mapstructure:"driver"` // mysql | sqlite (local runs, Database is the file)
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
}
type RabbitCfg struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}
type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}
type SecurityCfg struct {
	BuyerTokenSecret string `mapstructure:"buyerTokenSecret"`
}

// PaymentCfg tunes the reconciliation engine.
type PaymentCfg struct {
	Registry          string        `mapstructure:"registry"` // memory | redis
	SweepInterval     time.Duration `mapstructure:"sweepInterval"`
	StaleAfter        time.Duration `mapstructure:"staleAfter"`
	PriceDecimals     int32         `mapstructure:"priceDecimals"`
	SingleOnlinePayee bool          `mapstructure:"singleOnlinePayee"`
	InvoiceBasisTax   string        `mapstructure:"invoiceBasisTax"` // reject | aggregate
	Isolation         string        `mapstructure:"isolation"`
}

type RetryCfg struct {
	Times    int           `mapstructure:"times"`
	Interval time.Duration `mapstructure:"interval"`
}

type GatewayCfg struct {
	SandboxURL string        `mapstructure:"sandboxUrl"`
	LiveURL    string        `mapstructure:"liveUrl"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retry      RetryCfg      `mapstructure:"retry"`
}

type RateLimitCfg struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type NotifyCfg struct {
	TelegramChatID string `mapstructure:"telegramChatId"`
}

type Root struct {
	Server    ServerCfg    `mapstructure:"server"`
	Mysql     MysqlCfg     `mapstructure:"mysql"`
	RabbitMQ  RabbitCfg    `mapstructure:"rabbitmq"`
	Redis     RedisCfg     `mapstructure:"redis"`
	Security  SecurityCfg  `mapstructure:"security"`
	Payment   PaymentCfg   `mapstructure:"payment"`
	Gateway   GatewayCfg   `mapstructure:"gateway"`
	RateLimit RateLimitCfg `mapstructure:"ratelimit"`
	Notify    NotifyCfg    `mapstructure:"notify"`
}

var C Root

func Init() {
	env := flag.String("env", "dev", "config env: dev|prod")
	flag.Parse()

	// .env is optional, it only feeds the environment overrides below
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile("config/config." + *env + ".yaml")
	v.SetEnvPrefix("PPL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config file failed: %v", err)
	}
	if err := v.Unmarshal(&C); err != nil {
		log.Fatalf("unmarshal config failed: %v", err)
	}
	ApplyDefaults(&C)
	if C.Security.BuyerTokenSecret == "" {
		log.Fatalf("security.buyerTokenSecret is required")
	}
	if err := CheckPublicURL(C.Server.PublicURL); err != nil {
		log.Fatalf("server.publicUrl: %v", err)
	}
}

// CheckPublicURL requires an absolute https url without query or fragment.
func CheckPublicURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute https url", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%q must not carry a query or fragment", raw)
	}
	return nil
}

// ApplyDefaults fills the zero values left by a partial config file.
func ApplyDefaults(c *Root) {
	if strings.TrimSpace(c.Server.Port) == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ResultURL == "" {
		c.Server.ResultURL = "/ppl/result"
	}
	if len(c.Server.TrustedProxies) == 0 {
		c.Server.TrustedProxies = []string{"127.0.0.1"}
	}
	if c.Mysql.Driver == "" {
		c.Mysql.Driver = "mysql"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "payment_events"
	}
	if c.Payment.Registry == "" {
		c.Payment.Registry = "memory"
	}
	if c.Payment.SweepInterval <= 0 {
		c.Payment.SweepInterval = 20 * time.Minute
	}
	if c.Payment.StaleAfter <= 0 {
		c.Payment.StaleAfter = 20 * time.Minute
	}
	if c.Payment.PriceDecimals <= 0 {
		c.Payment.PriceDecimals = 2
	}
	if c.Payment.InvoiceBasisTax == "" {
		c.Payment.InvoiceBasisTax = "reject"
	}
	if c.Payment.Isolation == "" {
		c.Payment.Isolation = "read_committed"
	}
	if c.Gateway.SandboxURL == "" {
		c.Gateway.SandboxURL = "https://api.sandbox.paypal.com"
	}
	if c.Gateway.LiveURL == "" {
		c.Gateway.LiveURL = "https://api.paypal.com"
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 15 * time.Second
	}
	if c.Gateway.Retry.Times <= 0 {
		c.Gateway.Retry.Times = 3
	}
	if c.Gateway.Retry.Interval <= 0 {
		c.Gateway.Retry.Interval = 500 * time.Millisecond
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
}

// IsolationLevel maps the configured name onto database/sql levels.
// Unknown names fall back to the driver default.
func IsolationLevel(name string) sql.IsolationLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "read_uncommitted":
		return sql.LevelReadUncommitted
	case "read_committed":
		return sql.LevelReadCommitted
	case "repeatable_read":
		return sql.LevelRepeatableRead
	case "serializable":
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}
