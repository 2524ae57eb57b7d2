package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr      = "REDIS_ADDR"
	EnvRedisPassword  = "REDIS_PASSWORD"
	EnvRedisDB        = "REDIS_DB"
	EnvRedisQueueDB   = "REDIS_QUEUE_DB"
	EnvStoreBackend   = "STORE_BACKEND"
	EnvCatalogSeed    = "CATALOG_SEED_FILE"
	EnvEventsEnabled  = "EVENTS_ENABLED"
	EnvEventsTopic    = "EVENTS_TOPIC"
	EnvEventsGroupID  = "EVENTS_GROUP_ID"
	EnvEventsDLQTopic = "EVENTS_DLQ_TOPIC"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"
	EnvRateLimitBurst    = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSessionTTL         = "SESSION_TTL"
	EnvMaxHoldDuration    = "MAX_HOLD_DURATION"
	EnvSweepInterval      = "SESSION_SWEEP_INTERVAL"
	EnvOTPTTL             = "OTP_TTL"
	EnvOTPLength          = "OTP_LENGTH"
	EnvOTPMaxAttempts     = "OTP_MAX_ATTEMPTS"
	EnvOTPMaxResends      = "OTP_MAX_RESENDS"
	EnvOTPResendCooldown  = "OTP_RESEND_COOLDOWN"
	EnvOTPSecret          = "OTP_SECRET"
	EnvOTPDebug           = "OTP_DEBUG"
	EnvSlotGranularity    = "SLOT_GRANULARITY"
	EnvMinLeadTime        = "MIN_LEAD_TIME"
	EnvBookingHorizonDays = "BOOKING_HORIZON_DAYS"
	EnvMonthViewDays      = "MONTH_VIEW_DAYS"
	EnvDefaultTimeZone    = "DEFAULT_TIMEZONE"
	EnvReminderLeadTime   = "REMINDER_LEAD_TIME"

	EnvWhatsAppProvider      = "WHATSAPP_PROVIDER"
	EnvWhatsAppAPIURL        = "WHATSAPP_API_URL"
	EnvWhatsAppAccessToken   = "WHATSAPP_ACCESS_TOKEN"
	EnvWhatsAppPhoneNumberID = "WHATSAPP_PHONE_NUMBER_ID"
	EnvWhatsAppAppSecret     = "WHATSAPP_APP_SECRET"
	EnvNotifyConcurrency     = "NOTIFY_CONCURRENCY"
	EnvNotifyTimeout         = "NOTIFY_TIMEOUT"

	EnvIdentityAPIURL   = "IDENTITY_API_URL"
	EnvIdentityAPIToken = "IDENTITY_API_TOKEN"
	EnvIdentityCacheTTL = "IDENTITY_CACHE_TTL"

	EnvCloudinaryURL    = "CLOUDINARY_URL"
	EnvCloudinaryFolder = "CLOUDINARY_FOLDER"
)
