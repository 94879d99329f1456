package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration for both the API and the worker.
type Config struct {
	Env      string
	Port     string
	RunLocal bool

	AWSRegion   string
	AWSEndpoint string

	OrdersTable      string
	IdempotencyTable string
	EventsQueueURL   string
	OrderTopicArn    string

	RedisURL string
	CartTTL  time.Duration

	StripeSecretKey     string
	StripeSecretArn     string
	StripeWebhookSecret string
	Currency            string

	FrontendURL string
	APIBaseURL  string

	MetricsEnabled   bool
	MetricsNamespace string

	// ClaimTTL bounds how long a checkout-session claim is retained.
	ClaimTTL time.Duration
	// WebhookClaimLease is how long an IN_PROGRESS webhook claim blocks
	// redeliveries before it is considered abandoned.
	WebhookClaimLease time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		RunLocal:            getBool("RUN_LOCAL", false),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSEndpoint:         os.Getenv("AWS_ENDPOINT_OVERRIDE"),
		OrdersTable:         getEnv("ORDERS_TABLE", "orders"),
		IdempotencyTable:    getEnv("IDEMPOTENCY_TABLE", "idempotency"),
		EventsQueueURL:      os.Getenv("PROVIDER_EVENTS_QUEUE_URL"),
		OrderTopicArn:       os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeSecretArn:     os.Getenv("STRIPE_SECRET_ARN"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            getEnv("CHECKOUT_CURRENCY", "usd"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		APIBaseURL:          getEnv("API_BASE_URL", "http://localhost:8080"),
		MetricsEnabled:      getBool("METRICS_ENABLED", false),
		MetricsNamespace:    getEnv("CLOUDWATCH_NAMESPACE", "AdyX/Storefront"),
	}

	var err error
	if cfg.CartTTL, err = getDuration("CART_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ClaimTTL, err = getDuration("CLAIM_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.WebhookClaimLease, err = getDuration("WEBHOOK_CLAIM_LEASE", 2*time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return d, nil
}
