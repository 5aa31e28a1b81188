// Package config loads settings for the worker, server and starter binaries.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-chat-commerce/chat-commerce/types"
)

// Services holds the base URL of every remote collaborator
type Services struct {
	Session      string `yaml:"session"`
	SalesAgent   string `yaml:"sales_agent"`
	Loyalty      string `yaml:"loyalty"`
	Payment      string `yaml:"payment"`
	PostPurchase string `yaml:"post_purchase"`
	Stylist      string `yaml:"stylist"`
}

type Config struct {
	TemporalHost      string `yaml:"temporal_host"`
	TemporalNamespace string `yaml:"temporal_namespace"`
	TaskQueue         string `yaml:"task_queue"`

	HTTPAddr       string  `yaml:"http_addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	LedgerDSN string `yaml:"ledger_dsn"`

	Services Services `yaml:"services"`

	Currency       string `yaml:"currency"`
	CheckoutSource string `yaml:"checkout_source"`
	MerchantName   string `yaml:"merchant_name"`
	Channel        string `yaml:"channel"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		TemporalHost:      "localhost:7233",
		TemporalNamespace: "default",
		TaskQueue:         "chat-commerce-task-queue",
		HTTPAddr:          ":8085",
		RateLimitRPS:      5,
		RateLimitBurst:    10,
		RedisAddr:         "localhost:6379",
		Services: Services{
			Session:      "http://localhost:8000",
			SalesAgent:   "http://localhost:8001",
			Loyalty:      "http://localhost:8002/loyalty",
			Payment:      "http://localhost:8003/payment",
			PostPurchase: "http://localhost:8004/post-purchase",
			Stylist:      "http://localhost:8005/stylist",
		},
		Currency:       "INR",
		CheckoutSource: "chat",
		MerchantName:   "Chat Commerce",
		Channel:        "web",
	}
}

// Checkout returns the settings handed to every chat-session workflow
func (c *Config) Checkout() types.CheckoutSettings {
	return types.CheckoutSettings{
		Currency:       c.Currency,
		CheckoutSource: c.CheckoutSource,
		MerchantName:   c.MerchantName,
	}
}

// Load reads .env, then the YAML file named by CHAT_CONFIG_FILE, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg := Default()
	if path := os.Getenv("CHAT_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.TemporalHost = getEnv("TEMPORAL_HOST", c.TemporalHost)
	c.TemporalNamespace = getEnv("TEMPORAL_NAMESPACE", c.TemporalNamespace)
	c.TaskQueue = getEnv("CHAT_TASK_QUEUE", c.TaskQueue)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.LedgerDSN = getEnv("LEDGER_DSN", c.LedgerDSN)

	c.Services.Session = getEnv("SESSION_SERVICE_URL", c.Services.Session)
	c.Services.SalesAgent = getEnv("SALES_AGENT_URL", c.Services.SalesAgent)
	c.Services.Loyalty = getEnv("LOYALTY_SERVICE_URL", c.Services.Loyalty)
	c.Services.Payment = getEnv("PAYMENT_SERVICE_URL", c.Services.Payment)
	c.Services.PostPurchase = getEnv("POST_PURCHASE_SERVICE_URL", c.Services.PostPurchase)
	c.Services.Stylist = getEnv("STYLIST_SERVICE_URL", c.Services.Stylist)

	c.Currency = getEnv("CHECKOUT_CURRENCY", c.Currency)
	c.CheckoutSource = getEnv("CHECKOUT_SOURCE", c.CheckoutSource)
	c.MerchantName = getEnv("MERCHANT_NAME", c.MerchantName)
	c.Channel = getEnv("SESSION_CHANNEL", c.Channel)

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.RedisDB = db
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		c.RateLimitRPS = rps
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST %q: %w", v, err)
		}
		c.RateLimitBurst = burst
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
