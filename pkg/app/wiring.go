package app

import (
	"fmt"
	"time"

	catalog "stylo/internal/availability/repository"
	availability "stylo/internal/availability/service"
	"stylo/internal/bookings/service"
	"stylo/internal/bookings/validator"
	clients "stylo/internal/clients/repository"
	"stylo/internal/events"
	"stylo/internal/identity"
	"stylo/internal/notifications"
	otprepo "stylo/internal/otp/repository"
	otp "stylo/internal/otp/service"
	"stylo/internal/photos"
	"stylo/internal/reminders"
	sessionrepo "stylo/internal/sessions/repository"
	sessions "stylo/internal/sessions/service"
	"stylo/pkg/client"
	"stylo/pkg/clock"
	"stylo/pkg/config"
	"stylo/pkg/metrics"
	"stylo/pkg/sealer"

	"github.com/hibiken/asynq"
)

const upstreamTimeout = 5 * time.Second

// services is everything the HTTP layer and the background workers need.
type services struct {
	availability availability.AvailabilityService
	sessions     sessions.SessionService
	booking      service.BookingService
	dispatcher   *notifications.Dispatcher
	publisher    events.Publisher
	reminders    reminders.Scheduler
}

func buildServices(cfg *config.Config, clk clock.Clock, m *metrics.BookingMetrics) (*services, error) {
	issuer, err := sealer.New(cfg.OTPSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init token sealer: %w", err)
	}

	var (
		catalogRepo catalog.CatalogRepository
		sessionRepo sessionrepo.SessionRepository
		clientRepo  clients.ClientRepository
		challenges  otprepo.ChallengeStore
	)
	if cfg.UsesMemoryStore() {
		seed, err := loadSeed(cfg)
		if err != nil {
			return nil, err
		}
		catalogRepo = catalog.NewMemoryCatalog(seed)
		sessionRepo = sessionrepo.NewMemorySessionRepository(clk)
		clientRepo = clients.NewMemoryClientRepository()
		challenges = otprepo.NewMemoryChallengeStore()
		cfg.Log.Warn("Using in-memory stores; state is lost on restart")
	} else {
		catalogRepo = catalog.NewMongoCatalogRepository(cfg)
		sessionRepo = sessionrepo.NewMongoSessionRepository(cfg, clk)
		clientRepo = clients.NewMongoClientRepository(cfg)
		challenges = otprepo.NewRedisChallengeStore(cfg.Client.Redis, cfg.MaxHoldDuration)
	}

	sessionSvc := sessions.NewSessionService(sessionRepo, issuer, clk, sessions.Settings{
		SessionTTL:      cfg.SessionTTL,
		MaxHoldDuration: cfg.MaxHoldDuration,
		OTPTTL:          cfg.OTPTTL,
		SweepInterval:   cfg.SweepInterval,
	}, m, cfg.Log.Component("sessions"))

	availabilitySvc := availability.NewAvailabilityService(catalogRepo, sessionSvc, clk, availability.Settings{
		Granularity:   cfg.SlotGranularity,
		MinLeadTime:   cfg.MinLeadTime,
		HorizonDays:   cfg.BookingHorizonDays,
		MonthViewDays: cfg.MonthViewDays,
	}, m, cfg.Log.Component("availability"))

	otpSvc := otp.NewOTPService(challenges, issuer, clk, otp.Settings{
		TTL:            cfg.OTPTTL,
		Length:         cfg.OTPLength,
		MaxAttempts:    cfg.OTPMaxAttempts,
		MaxResends:     cfg.OTPMaxResends,
		ResendCooldown: cfg.OTPResendCooldown,
	}, m, cfg.Log.Component("otp"))

	uploader, err := newUploader(cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := newPublisher(cfg, m)
	if err != nil {
		return nil, err
	}

	dispatcher := notifications.NewDispatcher(NewSender(cfg), cfg.NotifyConcurrency, cfg.NotifyTimeout, m, cfg.Log.Component("otp_dispatcher"))
	scheduler := newScheduler(cfg, clk)

	bookingSvc := service.NewBookingService(service.Dependencies{
		Catalog:      catalogRepo,
		Availability: availabilitySvc,
		Sessions:     sessionSvc,
		OTP:          otpSvc,
		Clients:      clientRepo,
		Identity:     newIdentityService(cfg),
		Photos:       uploader,
		Notifier:     dispatcher,
		Events:       publisher,
		Reminders:    scheduler,
		Validator:    validator.NewBookingValidator(clk, cfg.Log),
		Clock:        clk,
		Metrics:      m,
		Log:          cfg.Log.Component("booking"),
	}, service.Options{
		OTPTTL:   cfg.OTPTTL,
		DebugOTP: cfg.OTPDebug,
	})
	sessionSvc.OnExpired(bookingSvc.OnSessionExpired)

	return &services{
		availability: availabilitySvc,
		sessions:     sessionSvc,
		booking:      bookingSvc,
		dispatcher:   dispatcher,
		publisher:    publisher,
		reminders:    scheduler,
	}, nil
}

func loadSeed(cfg *config.Config) (*catalog.CatalogSeed, error) {
	if cfg.CatalogSeedFile == "" {
		cfg.Log.Warn("No catalog seed file configured; the catalog is empty")
		return nil, nil
	}
	seed, err := catalog.LoadCatalogSeed(cfg.CatalogSeedFile)
	if err != nil {
		return nil, err
	}
	cfg.Log.Info("Catalog seed loaded",
		"file", cfg.CatalogSeedFile,
		"branches", len(seed.Branches),
		"services", len(seed.Services),
		"staff", len(seed.Staff),
	)
	return seed, nil
}

// NewSender picks the WhatsApp transport named by cfg.WhatsAppProvider.
func NewSender(cfg *config.Config) notifications.Sender {
	if cfg.WhatsAppProvider == config.ProviderMeta {
		httpClient := client.NewHttpClient(cfg.WhatsAppAPIURL, cfg.NotifyTimeout).WithBearer(cfg.WhatsAppAccessToken)
		return notifications.NewMetaSender(httpClient, cfg.WhatsAppPhoneNumberID)
	}
	return notifications.NewMockSender(cfg.Log.Component("whatsapp_mock"))
}

func newIdentityService(cfg *config.Config) identity.IdentityService {
	var registry identity.Registry
	if cfg.IdentityAPIURL != "" {
		httpClient := client.NewHttpClient(cfg.IdentityAPIURL, upstreamTimeout).WithBearer(cfg.IdentityAPIToken)
		registry = identity.NewHTTPRegistry(httpClient)
	} else {
		cfg.Log.Warn("No identity registry configured; DNI lookups return not found")
	}
	// A nil *redis.Client disables the cache on the memory backend.
	return identity.NewIdentityService(registry, cfg.Client.Redis, cfg.IdentityCacheTTL, cfg.Log.Component("identity"))
}

func newUploader(cfg *config.Config) (photos.Uploader, error) {
	if cfg.CloudinaryURL == "" {
		return photos.NewDisabledUploader(), nil
	}
	uploader, err := photos.NewCloudinaryUploader(cfg.CloudinaryURL, cfg.CloudinaryFolder)
	if err != nil {
		return nil, err
	}
	cfg.Log.Info("Client photo uploads enabled", "folder", cfg.CloudinaryFolder)
	return uploader, nil
}

func newPublisher(cfg *config.Config, m *metrics.BookingMetrics) (events.Publisher, error) {
	if !cfg.EventsEnabled || cfg.Kafka == nil {
		return events.NewNoopPublisher(), nil
	}
	publisher, err := events.NewKafkaPublisher(cfg.Kafka, cfg.EventsTopic, cfg.EventsDLQTopic, m, cfg.Log.Component("events"))
	if err != nil {
		return nil, fmt.Errorf("failed to init event publisher: %w", err)
	}
	cfg.Log.Info("Booking events enabled", "topic", cfg.EventsTopic)
	return publisher, nil
}

// newScheduler enqueues reminders on the asynq Redis database. The memory
// backend runs without Redis, so reminders are skipped there.
func newScheduler(cfg *config.Config, clk clock.Clock) reminders.Scheduler {
	if cfg.UsesMemoryStore() {
		return reminders.NoopScheduler{}
	}
	asynqClient := asynq.NewClient(RedisQueueOpt(cfg))
	return reminders.NewAsynqScheduler(asynqClient, clk, cfg.ReminderLeadTime, cfg.Log.Component("reminders"))
}

// RedisQueueOpt points asynq at its own Redis database.
func RedisQueueOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}
