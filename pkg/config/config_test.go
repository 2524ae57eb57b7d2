package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:           DefaultMongoURI,
		MongoDatabaseName:  DefaultMongoDatabaseName,
		MongoConnTimeout:   DefaultMongoConnTimeout,
		RedisAddr:          DefaultRedisAddr,
		StoreBackend:       StoreMongo,
		Port:               DefaultPort,
		RateLimitRequests:  DefaultRateLimitRequests,
		RateLimitWindow:    DefaultRateLimitWindow,
		RateLimitBurst:     DefaultRateLimitBurst,
		RequestTimeout:     DefaultRequestTimeout,
		IdempotencyTTL:     DefaultIdempotencyTTL,
		MaxRequestSize:     DefaultMaxRequestSize,
		ReadTimeout:        DefaultReadTimeout,
		WriteTimeout:       DefaultWriteTimeout,
		IdleTimeout:        DefaultIdleTimeout,
		ShutdownTimeout:    DefaultShutdownTimeout,
		SessionTTL:         DefaultSessionTTL,
		MaxHoldDuration:    DefaultMaxHoldDuration,
		SweepInterval:      DefaultSweepInterval,
		OTPTTL:             DefaultOTPTTL,
		OTPLength:          DefaultOTPLength,
		OTPMaxAttempts:     DefaultOTPMaxAttempts,
		OTPMaxResends:      DefaultOTPMaxResends,
		OTPResendCooldown:  DefaultOTPResendCooldown,
		OTPSecret:          "0123456789abcdef0123",
		SlotGranularity:    DefaultSlotGranularity,
		MinLeadTime:        DefaultMinLeadTime,
		BookingHorizonDays: DefaultBookingHorizonDays,
		MonthViewDays:      DefaultMonthViewDays,
		DefaultTimeZone:    "UTC",
		WhatsAppProvider:   ProviderMock,
		NotifyConcurrency:  DefaultNotifyConcurrency,
		NotifyTimeout:      DefaultNotifyTimeout,
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Port = "99999" }, "Port must be between"},
		{"bad backend", func(c *Config) { c.StoreBackend = "postgres" }, "StoreBackend must be one of"},
		{"bad mongo uri", func(c *Config) { c.MongoURI = "http://localhost:27017" }, "MongoURI must start with"},
		{"short secret", func(c *Config) { c.OTPSecret = "short" }, "OTPSecret must be set"},
		{"hold shorter than ttl", func(c *Config) { c.MaxHoldDuration = time.Minute }, "MaxHoldDuration"},
		{"zero attempts", func(c *Config) { c.OTPMaxAttempts = 0 }, "OTPMaxAttempts must be positive"},
		{"meta without token", func(c *Config) { c.WhatsAppProvider = ProviderMeta }, "access token"},
		{"unknown provider", func(c *Config) { c.WhatsAppProvider = "twilio" }, "WhatsAppProvider must be one of"},
		{"zero session ttl", func(c *Config) { c.SessionTTL = 0 }, "SessionTTL must be positive"},
		{"bad timezone", func(c *Config) { c.DefaultTimeZone = "Mars/Base" }, "DefaultTimeZone"},
		{"bad cloudinary", func(c *Config) { c.CloudinaryURL = "https://x" }, "CloudinaryURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_MemoryBackendSkipsMongo(t *testing.T) {
	cfg := validConfig()
	cfg.StoreBackend = StoreMemory
	cfg.MongoURI = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory backend should not require mongo: %v", err)
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:hunter2@db:27017")
	if strings.Contains(got, "hunter2") {
		t.Errorf("password leaked: %s", got)
	}
}
