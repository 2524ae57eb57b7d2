package config

import "time"

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	ProviderMock = "mock"
	ProviderMeta = "meta"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "stylo"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr    = "localhost:6379"
	DefaultRedisDB      = 0
	DefaultRedisQueueDB = 1
	DefaultStoreBackend = StoreMongo

	DefaultEventsTopic   = "booking.events"
	DefaultEventsGroupID = "booking-reminders"

	DefaultPort = "8080"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute
	DefaultRateLimitBurst    = 10

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 6 * 1024 * 1024 // photo uploads

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultSessionTTL         = 15 * time.Minute
	DefaultMaxHoldDuration    = 30 * time.Minute
	DefaultSweepInterval      = 1 * time.Minute
	DefaultOTPTTL             = 5 * time.Minute
	DefaultOTPLength          = 6
	DefaultOTPMaxAttempts     = 3
	DefaultOTPMaxResends      = 3
	DefaultOTPResendCooldown  = 30 * time.Second
	DefaultSlotGranularity    = 30 * time.Minute
	DefaultMinLeadTime        = 30 * time.Minute
	DefaultBookingHorizonDays = 60
	DefaultMonthViewDays      = 30
	DefaultTimeZone           = "America/Lima"
	DefaultReminderLeadTime   = 24 * time.Hour

	DefaultWhatsAppProvider  = ProviderMock
	DefaultWhatsAppAPIURL    = "https://graph.facebook.com/v18.0"
	DefaultNotifyConcurrency = 8
	DefaultNotifyTimeout     = 10 * time.Second

	DefaultIdentityCacheTTL = 24 * time.Hour
	DefaultCloudinaryFolder = "stylo/clients"
)
