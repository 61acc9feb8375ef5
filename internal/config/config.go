package config

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"broadcastmotion_payments/internal/payments"
)

type Server struct {
	Port string `mapstructure:"port"`
}

type Database struct {
	URL string `mapstructure:"url"`
}

type Redis struct {
	URL string `mapstructure:"url"`
}

type Auth struct {
	FirebaseCredentialsPath string `mapstructure:"firebase-credentials-path"`
	JWTSecret               string `mapstructure:"jwt-secret"`
}

type Logs struct {
	URL string `mapstructure:"url"`
}

type Metrics struct {
	URL          string        `mapstructure:"url"`
	Interval     time.Duration `mapstructure:"interval"`
	CommonLabels string        `mapstructure:"common-labels"`
}

type Kafka struct {
	Brokers           string `mapstructure:"brokers"`
	StatusTopic       string `mapstructure:"status-topic"`
	NotificationTopic string `mapstructure:"notification-topic"`
	GroupID           string `mapstructure:"group-id"`
}

type Gateway struct {
	// Card selects the card acquirer: "simulated" or "midtrans".
	Card               string `mapstructure:"card"`
	MidtransServerKey  string `mapstructure:"midtrans-server-key"`
	MidtransClientKey  string `mapstructure:"midtrans-client-key"`
	MidtransProduction bool   `mapstructure:"midtrans-production"`
	WebhookSecret      string `mapstructure:"webhook-secret"`
}

type Worker struct {
	Interval time.Duration `mapstructure:"interval"`
}

type Merchant struct {
	PixKey             string `mapstructure:"pix-key"`
	Name               string `mapstructure:"name"`
	City               string `mapstructure:"city"`
	CardCheckoutURL    string `mapstructure:"card-checkout-url"`
	BoletoDocumentURL  string `mapstructure:"boleto-document-url"`
	BankName           string `mapstructure:"bank-name"`
	BankCode           string `mapstructure:"bank-code"`
	BankAgency         string `mapstructure:"bank-agency"`
	BankAccount        string `mapstructure:"bank-account"`
	BankHolderName     string `mapstructure:"bank-holder-name"`
	BankHolderDocument string `mapstructure:"bank-holder-document"`
}

type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	Auth     Auth     `mapstructure:"auth"`
	Logs     Logs     `mapstructure:"logs"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Gateway  Gateway  `mapstructure:"gateway"`
	Worker   Worker   `mapstructure:"worker"`
	Merchant Merchant `mapstructure:"merchant"`
}

const (
	CardGatewaySimulated = "simulated"
	CardGatewayMidtrans  = "midtrans"
)

type binding struct {
	key          string
	env          string
	defaultValue interface{}
}

func bindings() []binding {
	merchant := payments.DefaultMerchantConfig()
	return []binding{
		{"server.port", "PORT", "8080"},
		{"database.url", "DATABASE_URL", ""},
		{"redis.url", "REDIS_URL", ""},
		{"auth.firebase-credentials-path", "FIREBASE_CREDENTIALS_PATH", ""},
		{"auth.jwt-secret", "AUTH_JWT_SECRET", ""},
		{"logs.url", "LOKI_URL", ""},
		{"metrics.url", "METRICS_PUSH_URL", ""},
		{"metrics.interval", "METRICS_PUSH_INTERVAL", "10s"},
		{"metrics.common-labels", "METRICS_COMMON_LABELS", `service="broadcastmotion-payments"`},
		{"kafka.brokers", "KAFKA_BROKERS", ""},
		{"kafka.status-topic", "KAFKA_STATUS_TOPIC", "payment-status-events"},
		{"kafka.notification-topic", "KAFKA_NOTIFICATION_TOPIC", "payment-gateway-notifications"},
		{"kafka.group-id", "KAFKA_GROUP_ID", "broadcastmotion-payments-worker"},
		{"gateway.card", "CARD_GATEWAY", CardGatewaySimulated},
		{"gateway.midtrans-server-key", "MIDTRANS_SERVER_KEY", ""},
		{"gateway.midtrans-client-key", "MIDTRANS_CLIENT_KEY", ""},
		{"gateway.midtrans-production", "MIDTRANS_IS_PRODUCTION", false},
		{"gateway.webhook-secret", "WEBHOOK_SECRET", ""},
		{"worker.interval", "WORKER_INTERVAL", "5m"},
		{"merchant.pix-key", "MERCHANT_PIX_KEY", merchant.PixKey},
		{"merchant.name", "MERCHANT_NAME", merchant.Name},
		{"merchant.city", "MERCHANT_CITY", merchant.City},
		{"merchant.card-checkout-url", "CARD_CHECKOUT_URL", merchant.CardCheckoutURL},
		{"merchant.boleto-document-url", "BOLETO_DOCUMENT_URL", merchant.BoletoDocumentURL},
		{"merchant.bank-name", "BANK_NAME", merchant.Bank.BankName},
		{"merchant.bank-code", "BANK_CODE", merchant.Bank.BankCode},
		{"merchant.bank-agency", "BANK_AGENCY", merchant.Bank.Agency},
		{"merchant.bank-account", "BANK_ACCOUNT", merchant.Bank.Account},
		{"merchant.bank-holder-name", "BANK_HOLDER_NAME", merchant.Bank.HolderName},
		{"merchant.bank-holder-document", "BANK_HOLDER_DOCUMENT", merchant.Bank.HolderDocument},
	}
}

// Load reads .env (if present), an optional config.yaml under path, and the environment.
// Environment variables win over the file, the file wins over defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, b := range bindings() {
		v.SetDefault(b.key, b.defaultValue)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// MerchantConfig converts the merchant block for the payment processors.
func (c *Config) MerchantConfig() payments.MerchantConfig {
	m := c.Merchant
	return payments.MerchantConfig{
		PixKey:            m.PixKey,
		Name:              m.Name,
		City:              m.City,
		CardCheckoutURL:   m.CardCheckoutURL,
		BoletoDocumentURL: m.BoletoDocumentURL,
		Bank: payments.BankAccount{
			BankName:       m.BankName,
			BankCode:       m.BankCode,
			Agency:         m.BankAgency,
			Account:        m.BankAccount,
			HolderName:     m.BankHolderName,
			HolderDocument: m.BankHolderDocument,
		},
	}
}
