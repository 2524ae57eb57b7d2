package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"stylo/pkg/client"
	kafkaconfig "stylo/pkg/kafka/config"
	"stylo/pkg/logger"

	"github.com/joho/godotenv"
)

var (
	mongoURIRegex      = regexp.MustCompile(`^mongodb(\+srv)?://`)
	mongoCredentials   = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	cloudinaryURLRegex = regexp.MustCompile(`^cloudinary://`)
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisQueueDB  int

	StoreBackend    string
	CatalogSeedFile string // JSON catalog for the memory backend

	EventsEnabled  bool
	EventsTopic    string
	EventsGroupID  string
	EventsDLQTopic string
	Kafka          *kafkaconfig.Config

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	SessionTTL         time.Duration
	MaxHoldDuration    time.Duration
	SweepInterval      time.Duration
	OTPTTL             time.Duration
	OTPLength          int
	OTPMaxAttempts     int
	OTPMaxResends      int
	OTPResendCooldown  time.Duration
	OTPSecret          string
	OTPDebug           bool
	SlotGranularity    time.Duration
	MinLeadTime        time.Duration
	BookingHorizonDays int
	MonthViewDays      int
	DefaultTimeZone    string
	ReminderLeadTime   time.Duration

	WhatsAppProvider      string
	WhatsAppAPIURL        string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppAppSecret     string
	NotifyConcurrency     int
	NotifyTimeout         time.Duration

	IdentityAPIURL   string
	IdentityAPIToken string
	IdentityCacheTTL time.Duration

	CloudinaryURL    string
	CloudinaryFolder string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),
		RedisQueueDB:  getEnvNum(EnvRedisQueueDB, DefaultRedisQueueDB),

		StoreBackend:    getEnvStr(EnvStoreBackend, DefaultStoreBackend),
		CatalogSeedFile: getEnvStr(EnvCatalogSeed, ""),

		EventsEnabled:  getEnvBool(EnvEventsEnabled, false),
		EventsTopic:    getEnvStr(EnvEventsTopic, DefaultEventsTopic),
		EventsGroupID:  getEnvStr(EnvEventsGroupID, DefaultEventsGroupID),
		EventsDLQTopic: getEnvStr(EnvEventsDLQTopic, ""),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		RateLimitBurst:    getEnvNum(EnvRateLimitBurst, DefaultRateLimitBurst),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		SessionTTL:         getEnvDuration(EnvSessionTTL, DefaultSessionTTL),
		MaxHoldDuration:    getEnvDuration(EnvMaxHoldDuration, DefaultMaxHoldDuration),
		SweepInterval:      getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		OTPTTL:             getEnvDuration(EnvOTPTTL, DefaultOTPTTL),
		OTPLength:          getEnvNum(EnvOTPLength, DefaultOTPLength),
		OTPMaxAttempts:     getEnvNum(EnvOTPMaxAttempts, DefaultOTPMaxAttempts),
		OTPMaxResends:      getEnvNum(EnvOTPMaxResends, DefaultOTPMaxResends),
		OTPResendCooldown:  getEnvDuration(EnvOTPResendCooldown, DefaultOTPResendCooldown),
		OTPSecret:          getEnvStr(EnvOTPSecret, ""),
		OTPDebug:           getEnvBool(EnvOTPDebug, false),
		SlotGranularity:    getEnvDuration(EnvSlotGranularity, DefaultSlotGranularity),
		MinLeadTime:        getEnvDuration(EnvMinLeadTime, DefaultMinLeadTime),
		BookingHorizonDays: getEnvNum(EnvBookingHorizonDays, DefaultBookingHorizonDays),
		MonthViewDays:      getEnvNum(EnvMonthViewDays, DefaultMonthViewDays),
		DefaultTimeZone:    getEnvStr(EnvDefaultTimeZone, DefaultTimeZone),
		ReminderLeadTime:   getEnvDuration(EnvReminderLeadTime, DefaultReminderLeadTime),

		WhatsAppProvider:      getEnvStr(EnvWhatsAppProvider, DefaultWhatsAppProvider),
		WhatsAppAPIURL:        getEnvStr(EnvWhatsAppAPIURL, DefaultWhatsAppAPIURL),
		WhatsAppAccessToken:   getEnvStr(EnvWhatsAppAccessToken, ""),
		WhatsAppPhoneNumberID: getEnvStr(EnvWhatsAppPhoneNumberID, ""),
		WhatsAppAppSecret:     getEnvStr(EnvWhatsAppAppSecret, ""),
		NotifyConcurrency:     getEnvNum(EnvNotifyConcurrency, DefaultNotifyConcurrency),
		NotifyTimeout:         getEnvDuration(EnvNotifyTimeout, DefaultNotifyTimeout),

		IdentityAPIURL:   getEnvStr(EnvIdentityAPIURL, ""),
		IdentityAPIToken: getEnvStr(EnvIdentityAPIToken, ""),
		IdentityCacheTTL: getEnvDuration(EnvIdentityCacheTTL, DefaultIdentityCacheTTL),

		CloudinaryURL:    getEnvStr(EnvCloudinaryURL, ""),
		CloudinaryFolder: getEnvStr(EnvCloudinaryFolder, DefaultCloudinaryFolder),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if cfg.EventsEnabled {
		cfg.Kafka = kafkaconfig.Load()
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) UsesMemoryStore() bool {
	return cfg.StoreBackend == StoreMemory
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.StoreBackend != StoreMongo && cfg.StoreBackend != StoreMemory {
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [mongo, memory], got: %s", cfg.StoreBackend))
	}

	if cfg.StoreBackend == StoreMongo {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !mongoURIRegex.MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}

	if cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty")
	}
	if cfg.EventsEnabled && cfg.EventsTopic == "" {
		errors = append(errors, "EventsTopic cannot be empty when events are enabled")
	}
	if cfg.Kafka != nil {
		if err := cfg.Kafka.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RateLimitBurst <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitBurst must be positive, got: %d", cfg.RateLimitBurst))
	}

	for name, d := range map[string]time.Duration{
		"RequestTimeout":  cfg.RequestTimeout,
		"IdempotencyTTL":  cfg.IdempotencyTTL,
		"ReadTimeout":     cfg.ReadTimeout,
		"WriteTimeout":    cfg.WriteTimeout,
		"IdleTimeout":     cfg.IdleTimeout,
		"ShutdownTimeout": cfg.ShutdownTimeout,
		"SessionTTL":      cfg.SessionTTL,
		"SweepInterval":   cfg.SweepInterval,
		"OTPTTL":          cfg.OTPTTL,
		"NotifyTimeout":   cfg.NotifyTimeout,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.MaxHoldDuration < cfg.SessionTTL {
		errors = append(errors, fmt.Sprintf("MaxHoldDuration (%s) must be >= SessionTTL (%s)", cfg.MaxHoldDuration, cfg.SessionTTL))
	}
	if cfg.OTPLength < 4 || cfg.OTPLength > 10 {
		errors = append(errors, fmt.Sprintf("OTPLength must be between 4 and 10, got: %d", cfg.OTPLength))
	}
	if cfg.OTPMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("OTPMaxAttempts must be positive, got: %d", cfg.OTPMaxAttempts))
	}
	if cfg.OTPMaxResends < 0 {
		errors = append(errors, fmt.Sprintf("OTPMaxResends cannot be negative, got: %d", cfg.OTPMaxResends))
	}
	if cfg.OTPResendCooldown < 0 {
		errors = append(errors, fmt.Sprintf("OTPResendCooldown cannot be negative, got: %s", cfg.OTPResendCooldown))
	}
	if len(cfg.OTPSecret) < 16 {
		errors = append(errors, "OTPSecret must be set and at least 16 characters long")
	}
	if cfg.SlotGranularity < 0 {
		errors = append(errors, fmt.Sprintf("SlotGranularity cannot be negative, got: %s", cfg.SlotGranularity))
	}
	if cfg.MinLeadTime < 0 {
		errors = append(errors, fmt.Sprintf("MinLeadTime cannot be negative, got: %s", cfg.MinLeadTime))
	}
	if cfg.BookingHorizonDays <= 0 {
		errors = append(errors, fmt.Sprintf("BookingHorizonDays must be positive, got: %d", cfg.BookingHorizonDays))
	}
	if cfg.MonthViewDays <= 0 {
		errors = append(errors, fmt.Sprintf("MonthViewDays must be positive, got: %d", cfg.MonthViewDays))
	}
	if _, err := time.LoadLocation(cfg.DefaultTimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("DefaultTimeZone is not a valid IANA zone, got: %s", cfg.DefaultTimeZone))
	}

	switch cfg.WhatsAppProvider {
	case ProviderMock:
	case ProviderMeta:
		if cfg.WhatsAppAccessToken == "" || cfg.WhatsAppPhoneNumberID == "" {
			errors = append(errors, "WhatsApp access token and phone number id are required for the meta provider")
		}
	default:
		errors = append(errors, fmt.Sprintf("WhatsAppProvider must be one of [mock, meta], got: %s", cfg.WhatsAppProvider))
	}
	if cfg.NotifyConcurrency <= 0 {
		errors = append(errors, fmt.Sprintf("NotifyConcurrency must be positive, got: %d", cfg.NotifyConcurrency))
	}

	if cfg.CloudinaryURL != "" && !cloudinaryURLRegex.MatchString(cfg.CloudinaryURL) {
		errors = append(errors, "CloudinaryURL must start with 'cloudinary://'")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"store_backend", cfg.StoreBackend,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"events_enabled", cfg.EventsEnabled,
		"events_topic", cfg.EventsTopic,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"session_ttl", cfg.SessionTTL,
		"max_hold_duration", cfg.MaxHoldDuration,
		"otp_ttl", cfg.OTPTTL,
		"otp_max_attempts", cfg.OTPMaxAttempts,
		"otp_max_resends", cfg.OTPMaxResends,
		"otp_resend_cooldown", cfg.OTPResendCooldown,
		"otp_debug", cfg.OTPDebug,
		"slot_granularity", cfg.SlotGranularity,
		"min_lead_time", cfg.MinLeadTime,
		"booking_horizon_days", cfg.BookingHorizonDays,
		"default_timezone", cfg.DefaultTimeZone,
		"whatsapp_provider", cfg.WhatsAppProvider,
		"whatsapp_secret_set", cfg.WhatsAppAppSecret != "",
		"identity_api_set", cfg.IdentityAPIURL != "",
		"cloudinary_set", cfg.CloudinaryURL != "",
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func redactMongoURI(uri string) string {
	return mongoCredentials.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
