package service

import (
	"context"
	"errors"
	"time"

	sessionserrors "stylo/internal/sessions/errors"
	"stylo/internal/sessions/repository"
	"stylo/pkg/clock"
	apperrors "stylo/pkg/errors"
	"stylo/pkg/logger"
	"stylo/pkg/metrics"
	"stylo/pkg/model"
	"stylo/pkg/sealer"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("stylo.internal.sessions")

const (
	outcomeStarted   = "started"
	outcomeSlotTaken = "slot_taken"
	outcomeConfirmed = "confirmed"
	outcomeCancelled = "cancelled"
	outcomeExpired   = "expired"
)

type TokenIssuer interface {
	SessionToken() (string, error)
}

type Settings struct {
	SessionTTL      time.Duration
	MaxHoldDuration time.Duration
	OTPTTL          time.Duration
	SweepInterval   time.Duration
}

// ExpiryHook is told about every hold that expired, including holds released
// by a competing Start.
type ExpiryHook func(ctx context.Context, session *model.BookingSession)

type SessionService interface {
	Start(ctx context.Context, slot model.SlotRequest) (*model.BookingSession, error)
	Get(ctx context.Context, token string) (*model.BookingSession, error)
	AttachDraft(ctx context.Context, token string, draft model.ClientDraft) (*model.BookingSession, error)
	Finalize(ctx context.Context, token string, appointment *model.Appointment) (*model.BookingSession, error)
	Cancel(ctx context.Context, token string) (*model.BookingSession, error)
	FindAppointment(ctx context.Context, id string) (*model.Appointment, error)
	BusyIntervals(ctx context.Context, staffID string, from, to time.Time) ([]model.Interval, error)
	SweepExpired(ctx context.Context) ([]*model.BookingSession, error)
	OnExpired(hook ExpiryHook)
}

type sessionService struct {
	repo     repository.SessionRepository
	tokens   TokenIssuer
	clock    clock.Clock
	settings Settings
	metrics  *metrics.BookingMetrics
	log      *logger.Logger
	hooks    []ExpiryHook
}

func NewSessionService(
	repo repository.SessionRepository,
	tokens TokenIssuer,
	clk clock.Clock,
	settings Settings,
	m *metrics.BookingMetrics,
	log *logger.Logger,
) SessionService {
	return &sessionService{
		repo:     repo,
		tokens:   tokens,
		clock:    clk,
		settings: settings,
		metrics:  m,
		log:      log,
	}
}

// OnExpired registers a hook. Hooks must be registered before the sweeper
// starts.
func (s *sessionService) OnExpired(hook ExpiryHook) {
	s.hooks = append(s.hooks, hook)
}

func (s *sessionService) Start(ctx context.Context, slot model.SlotRequest) (*model.BookingSession, error) {
	ctx, span := tracer.Start(ctx, "sessions.start")
	defer span.End()
	span.SetAttributes(
		attribute.String("staff_id", slot.StaffID),
		attribute.String("start", slot.Start.UTC().Format(time.RFC3339)),
	)

	token, err := s.tokens.SessionToken()
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Internal("Failed to start booking session", err)
	}

	session := model.NewBookingSession(token, slot, s.clock.Now(), s.settings.SessionTTL)
	released, err := s.repo.Start(ctx, session)
	s.releaseExpired(ctx, released)
	if err != nil {
		if errors.Is(err, sessionserrors.ErrSlotTaken) {
			s.metrics.ObserveSession(outcomeSlotTaken)
			return nil, apperrors.SlotUnavailable()
		}
		span.RecordError(err)
		s.log.Error("failed to start booking session",
			"staff_id", slot.StaffID,
			"start", slot.Start,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to start booking session", err)
	}

	s.metrics.ObserveSession(outcomeStarted)
	s.log.Info("booking session started",
		"session", sealer.Redact(token),
		"staff_id", slot.StaffID,
		"start", slot.Start,
		"expires_at", session.ExpiresAt,
	)
	return session, nil
}

// Get returns a live session. A session past its expiry is reported as
// expired even when the sweeper has not released it yet.
func (s *sessionService) Get(ctx context.Context, token string) (*model.BookingSession, error) {
	session, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if session.EffectiveState(now) == model.StateExpired {
		if session.State != model.StateExpired {
			s.expire(ctx, session, now)
		}
		return session, apperrors.SessionExpired()
	}
	return session, nil
}

func (s *sessionService) load(ctx context.Context, token string) (*model.BookingSession, error) {
	if token == "" {
		return nil, apperrors.SessionNotFound()
	}
	session, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, s.translate(err, token)
	}
	return session, nil
}

func (s *sessionService) expire(ctx context.Context, session *model.BookingSession, now time.Time) {
	if err := session.Expire(now); err != nil {
		return
	}
	if err := s.repo.Save(ctx, session); err != nil {
		s.log.Warn("failed to persist session expiry",
			"session", sealer.Redact(session.Token),
			"error", err,
		)
		return
	}
	s.metrics.ObserveSession(outcomeExpired)
	s.runHooks(ctx, session)
}

func (s *sessionService) AttachDraft(ctx context.Context, token string, draft model.ClientDraft) (*model.BookingSession, error) {
	session, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	extendTo := now.Add(s.settings.OTPTTL)
	if ceiling := session.CreatedAt.Add(s.settings.MaxHoldDuration); extendTo.After(ceiling) {
		extendTo = ceiling
	}

	if err := session.AttachDraft(draft, extendTo, now); err != nil {
		return nil, s.translate(err, token)
	}
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, s.translate(err, token)
	}
	return session, nil
}

// Finalize verifies and confirms the session and writes its appointment in
// one atomic step, releasing the hold.
func (s *sessionService) Finalize(ctx context.Context, token string, appointment *model.Appointment) (*model.BookingSession, error) {
	ctx, span := tracer.Start(ctx, "sessions.finalize")
	defer span.End()

	session, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := session.MarkVerified(now); err != nil {
		return nil, s.translate(err, token)
	}
	if err := session.Confirm(appointment.ID, now); err != nil {
		return nil, s.translate(err, token)
	}

	if err := s.repo.Confirm(ctx, session, appointment); err != nil {
		span.RecordError(err)
		return nil, s.translate(err, token)
	}

	s.metrics.ObserveSession(outcomeConfirmed)
	s.log.Info("booking session confirmed",
		"session", sealer.Redact(token),
		"appointment_id", appointment.ID,
		"staff_id", session.StaffID,
	)
	return session, nil
}

// Cancel releases the hold early. Sessions that already reached a terminal
// state are returned unchanged; a hold past its expiry reports SESSION_EXPIRED.
func (s *sessionService) Cancel(ctx context.Context, token string) (*model.BookingSession, error) {
	session, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if session.State == model.StateExpired {
		return session, apperrors.SessionExpired()
	}
	if session.State.IsTerminal() {
		return session, nil
	}
	if session.IsExpired(now) {
		s.expire(ctx, session, now)
		return session, apperrors.SessionExpired()
	}

	if err := session.Cancel(now); err != nil {
		return nil, s.translate(err, token)
	}
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, s.translate(err, token)
	}

	s.metrics.ObserveSession(outcomeCancelled)
	s.log.Info("booking session cancelled", "session", sealer.Redact(token))
	return session, nil
}

func (s *sessionService) FindAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	appointment, err := s.repo.FindAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, sessionserrors.ErrAppointmentNotFound) {
			return nil, apperrors.NotFoundWithID("appointment", id)
		}
		return nil, apperrors.Internal("Failed to load appointment", err)
	}
	return appointment, nil
}

func (s *sessionService) BusyIntervals(ctx context.Context, staffID string, from, to time.Time) ([]model.Interval, error) {
	return s.repo.BusyIntervals(ctx, staffID, from, to)
}

func (s *sessionService) SweepExpired(ctx context.Context) ([]*model.BookingSession, error) {
	expired, err := s.repo.ExpireStale(ctx, s.clock.Now())
	s.releaseExpired(ctx, expired)
	if err != nil {
		return expired, err
	}
	if len(expired) > 0 {
		s.log.Info("expired stale booking sessions", "count", len(expired))
	}
	return expired, nil
}

// releaseExpired reports holds the store already moved to EXPIRED.
func (s *sessionService) releaseExpired(ctx context.Context, sessions []*model.BookingSession) {
	for _, session := range sessions {
		s.metrics.ObserveSession(outcomeExpired)
		s.runHooks(ctx, session)
	}
}

func (s *sessionService) runHooks(ctx context.Context, session *model.BookingSession) {
	for _, hook := range s.hooks {
		hook(ctx, session)
	}
}

func (s *sessionService) translate(err error, token string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, sessionserrors.ErrSessionNotFound):
		return apperrors.SessionNotFound()
	case errors.Is(err, model.ErrSessionExpired), errors.Is(err, sessionserrors.ErrHoldReleased):
		return apperrors.SessionExpired()
	case errors.Is(err, sessionserrors.ErrSlotTaken):
		return apperrors.SlotUnavailable()
	case errors.Is(err, model.ErrInvalidTransition):
		return apperrors.Conflict("Booking session is not in a valid state for this step")
	case errors.Is(err, sessionserrors.ErrVersionConflict):
		return apperrors.Conflict("Booking session was modified concurrently, retry the request")
	default:
		s.log.Error("booking session store failure",
			"session", sealer.Redact(token),
			"error", err,
		)
		return apperrors.Internal("Failed to process booking session", err)
	}
}
