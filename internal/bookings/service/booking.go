package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	availabilityerrors "stylo/internal/availability/errors"
	catalog "stylo/internal/availability/repository"
	availability "stylo/internal/availability/service"
	bookingserrors "stylo/internal/bookings/errors"
	"stylo/internal/bookings/validator"
	clientserrors "stylo/internal/clients/errors"
	clients "stylo/internal/clients/repository"
	"stylo/internal/events"
	"stylo/internal/identity"
	"stylo/internal/notifications"
	otp "stylo/internal/otp/service"
	"stylo/internal/photos"
	"stylo/internal/reminders"
	sessions "stylo/internal/sessions/service"
	"stylo/pkg/clock"
	apperrors "stylo/pkg/errors"
	"stylo/pkg/logger"
	"stylo/pkg/metrics"
	"stylo/pkg/model"
	"stylo/pkg/sealer"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("stylo.internal.bookings")

// LocalDatetimeLayout is the wall-clock form of start_datetime, read in the
// branch timezone.
const LocalDatetimeLayout = "2006-01-02T15:04"

const (
	postCommitTimeout = 10 * time.Second

	msgOTPSent   = "Verification code sent via WhatsApp"
	msgConfirmed = "Appointment confirmed"
)

// Notifier queues outbound messages without waiting for delivery.
type Notifier interface {
	Dispatch(msg notifications.Message) bool
}

type BookingService interface {
	Start(ctx context.Context, req *model.StartBookingRequest) (*model.StartBookingResponse, error)
	SendOTP(ctx context.Context, req *model.SendOTPRequest, photo *photos.Photo) (*model.OTPSentResponse, error)
	ResendOTP(ctx context.Context, token string) (*model.OTPSentResponse, error)
	VerifyOTP(ctx context.Context, req *model.VerifyOTPRequest) (*model.ConfirmationResponse, error)
	Cancel(ctx context.Context, token string) error
	LookupClient(ctx context.Context, req *model.LookupClientRequest) (*model.LookupClientResponse, error)
	LookupIdentity(ctx context.Context, dni string) (*identity.Person, error)
	// OnSessionExpired cleans up after a session the store released.
	OnSessionExpired(ctx context.Context, session *model.BookingSession)
}

type Dependencies struct {
	Catalog      catalog.CatalogRepository
	Availability availability.AvailabilityService
	Sessions     sessions.SessionService
	OTP          otp.OTPService
	Clients      clients.ClientRepository
	Identity     identity.IdentityService
	Photos       photos.Uploader
	Notifier     Notifier
	Events       events.Publisher
	Reminders    reminders.Scheduler
	Validator    *validator.BookingValidator
	Clock        clock.Clock
	Metrics      *metrics.BookingMetrics
	Log          *logger.Logger
}

type Options struct {
	OTPTTL   time.Duration
	DebugOTP bool
}

type bookingService struct {
	Dependencies
	opts Options
}

func NewBookingService(deps Dependencies, opts Options) BookingService {
	if deps.Photos == nil {
		deps.Photos = photos.NewDisabledUploader()
	}
	if deps.Events == nil {
		deps.Events = events.NewNoopPublisher()
	}
	if deps.Reminders == nil {
		deps.Reminders = reminders.NoopScheduler{}
	}
	return &bookingService{Dependencies: deps, opts: opts}
}

func (s *bookingService) Start(ctx context.Context, req *model.StartBookingRequest) (*model.StartBookingResponse, error) {
	ctx, span := tracer.Start(ctx, "bookings.start")
	defer span.End()

	if err := s.validate(req, "Invalid booking request"); err != nil {
		return nil, err
	}
	req.Notes = strings.TrimSpace(req.Notes)

	start, err := s.parseStart(ctx, req.BranchID, req.StartDatetime)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("staff_id", req.StaffID))

	slot, err := s.Availability.CheckSlot(ctx, req.BranchID, req.ServiceID, req.StaffID, start)
	if err != nil {
		return nil, err
	}

	session, err := s.Sessions.Start(ctx, model.SlotRequest{
		BranchID:  slot.Branch.ID,
		ServiceID: slot.Service.ID,
		StaffID:   slot.Staff.ID,
		Start:     slot.Start,
		End:       slot.End,
		Notes:     req.Notes,
		Price:     slot.Price,
	})
	if err != nil {
		return nil, err
	}

	return &model.StartBookingResponse{
		SessionToken: session.Token,
		ExpiresIn:    seconds(session.ExpiresIn(s.Clock.Now())),
		Summary: model.BookingSummary{
			BusinessName:    slot.Branch.BusinessName,
			BranchName:      slot.Branch.Name,
			BranchAddress:   slot.Branch.Address,
			ServiceName:     slot.Service.Name,
			DurationMinutes: int(slot.Duration.Minutes()),
			StaffName:       slot.Staff.Name(),
			StartDatetime:   slot.Start,
			EndDatetime:     slot.End,
			Price:           slot.Price,
		},
	}, nil
}

// parseStart accepts RFC3339 as an absolute instant. Anything else must be a
// wall time in the branch timezone.
func (s *bookingService) parseStart(ctx context.Context, branchID, raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}

	branch, err := s.Catalog.GetBranch(ctx, branchID)
	if err != nil {
		if errors.Is(err, availabilityerrors.ErrBranchNotFound) {
			return time.Time{}, apperrors.NotFoundWithID("branch", branchID)
		}
		return time.Time{}, apperrors.Internal("Failed to load branch", err)
	}

	t, err := time.ParseInLocation(LocalDatetimeLayout, raw, branch.Location())
	if err != nil {
		return time.Time{}, apperrors.Validation("Invalid booking request", map[string]any{
			"start_datetime": fmt.Sprintf("%v: %q", bookingserrors.ErrInvalidStartDatetime, raw),
		})
	}
	return t.UTC(), nil
}

func (s *bookingService) SendOTP(ctx context.Context, req *model.SendOTPRequest, photo *photos.Photo) (*model.OTPSentResponse, error) {
	ctx, span := tracer.Start(ctx, "bookings.send_otp")
	defer span.End()

	session, err := s.Sessions.Get(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}
	if session.State != model.StateHeld && session.State != model.StateAwaitingOTP {
		return nil, apperrors.Conflict(fmt.Sprintf("Booking session is %s, a code can no longer be sent", session.State))
	}

	draft := req.ClientDraft
	s.Validator.NormalizeDraft(&draft)
	if err := s.Validator.ValidateDraft(&draft); err != nil {
		return nil, invalidDraft(err)
	}

	if photo != nil {
		if err := photo.Validate(); err != nil {
			return nil, apperrors.InvalidDraft(map[string]any{"photo": err.Error()})
		}
		ref, err := s.Photos.Upload(ctx, photo)
		if err != nil {
			s.Log.Warn("photo upload failed, continuing without photo",
				"session", sealer.Redact(session.Token),
				"error", err,
			)
		} else {
			draft.PhotoRef = ref
		}
	}

	challenge, code, err := s.OTP.Issue(ctx, session.Token, draft.PhoneNumber)
	if err != nil {
		return nil, err
	}

	if _, err := s.Sessions.AttachDraft(ctx, session.Token, draft); err != nil {
		return nil, err
	}

	s.Notifier.Dispatch(notifications.OTPMessage(draft.PhoneNumber, code, s.opts.OTPTTL, sealer.Redact(session.Token)))
	return s.otpSent(challenge, code), nil
}

func (s *bookingService) ResendOTP(ctx context.Context, token string) (*model.OTPSentResponse, error) {
	ctx, span := tracer.Start(ctx, "bookings.resend_otp")
	defer span.End()

	session, err := s.Sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.State != model.StateAwaitingOTP || session.Draft == nil {
		return nil, apperrors.Conflict("No verification code was sent for this booking session")
	}

	challenge, code, err := s.OTP.Resend(ctx, session.Token, session.Draft.PhoneNumber)
	if err != nil {
		return nil, err
	}

	s.Notifier.Dispatch(notifications.OTPMessage(challenge.PhoneNumber, code, s.opts.OTPTTL, sealer.Redact(session.Token)))
	return s.otpSent(challenge, code), nil
}

func (s *bookingService) otpSent(challenge *model.OTPChallenge, code string) *model.OTPSentResponse {
	resp := &model.OTPSentResponse{
		Message:   msgOTPSent,
		ExpiresIn: seconds(challenge.ExpiresAt.Sub(s.Clock.Now())),
	}
	if s.opts.DebugOTP {
		resp.DebugOTP = code
	}
	return resp
}

// VerifyOTP is idempotent: once a session is confirmed every further call
// returns the same appointment without writing anything.
func (s *bookingService) VerifyOTP(ctx context.Context, req *model.VerifyOTPRequest) (*model.ConfirmationResponse, error) {
	ctx, span := tracer.Start(ctx, "bookings.verify_otp")
	defer span.End()

	if err := s.validate(req, "Invalid verification request"); err != nil {
		return nil, err
	}

	session, err := s.Sessions.Get(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}
	if session.State == model.StateConfirmed {
		return s.existingConfirmation(ctx, session)
	}
	if session.State != model.StateAwaitingOTP || session.Draft == nil {
		return nil, apperrors.Conflict("Booking session is not awaiting verification")
	}

	if err := s.OTP.Verify(ctx, session.Token, req.OTPCode); err != nil {
		if confirmed, ok := s.confirmedMeanwhile(ctx, session.Token); ok {
			return confirmed, nil
		}
		return nil, err
	}

	now := s.Clock.Now()
	client, err := s.Clients.GetOrCreateFromDraft(ctx, *session.Draft, now)
	if err != nil {
		s.Log.Error("failed to upsert client",
			"session", sealer.Redact(session.Token),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to register client", err)
	}

	appointment := &model.Appointment{
		ID:            uuid.NewString(),
		BranchID:      session.BranchID,
		StaffID:       session.StaffID,
		ServiceID:     session.ServiceID,
		StartDatetime: session.StartDatetime,
		EndDatetime:   session.EndDatetime,
		Status:        model.AppointmentConfirmed,
		ClientRef:     client.ID,
		Price:         session.Price,
		Notes:         session.Notes,
		Source:        model.SourceOnline,
		CreatedAt:     now,
	}

	confirmed, err := s.Sessions.Finalize(ctx, session.Token, appointment)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			if existing, ok := s.confirmedMeanwhile(ctx, session.Token); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("appointment_id", appointment.ID))

	s.afterConfirm(ctx, confirmed, appointment, client)

	return &model.ConfirmationResponse{
		Success:     true,
		Message:     msgConfirmed,
		Appointment: appointment,
	}, nil
}

func (s *bookingService) existingConfirmation(ctx context.Context, session *model.BookingSession) (*model.ConfirmationResponse, error) {
	if session.AppointmentID == "" {
		return nil, apperrors.Internal("Failed to load appointment", bookingserrors.ErrAppointmentMissing)
	}
	appointment, err := s.Sessions.FindAppointment(ctx, session.AppointmentID)
	if err != nil {
		return nil, err
	}
	return &model.ConfirmationResponse{
		Success:     true,
		Message:     msgConfirmed,
		Appointment: appointment,
	}, nil
}

// confirmedMeanwhile covers a concurrent verify-otp that won the race: the
// loser sees its challenge gone or its version stale, but the session is
// already confirmed.
func (s *bookingService) confirmedMeanwhile(ctx context.Context, token string) (*model.ConfirmationResponse, bool) {
	session, err := s.Sessions.Get(ctx, token)
	if err != nil || session.State != model.StateConfirmed {
		return nil, false
	}
	resp, err := s.existingConfirmation(ctx, session)
	if err != nil {
		return nil, false
	}
	return resp, true
}

// afterConfirm runs the side effects of a committed booking. None of them
// can fail the request.
func (s *bookingService) afterConfirm(ctx context.Context, session *model.BookingSession, appointment *model.Appointment, client *model.Client) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
	defer cancel()

	event := s.confirmedEvent(ctx, session, appointment, client)

	if err := s.Events.AppointmentConfirmed(ctx, event); err != nil {
		s.Log.Error("failed to publish appointment confirmation",
			"appointment_id", appointment.ID,
			"error", err,
		)
	}

	if _, err := s.Reminders.Schedule(ctx, event); err != nil {
		s.Log.Warn("failed to schedule reminder",
			"appointment_id", appointment.ID,
			"error", err,
		)
	}

	s.Notifier.Dispatch(notifications.ConfirmationMessage(event.Details()))
}

// confirmedEvent resolves display names from the catalog. Missing entries
// fall back to their ids.
func (s *bookingService) confirmedEvent(ctx context.Context, session *model.BookingSession, appointment *model.Appointment, client *model.Client) events.AppointmentConfirmed {
	event := events.AppointmentConfirmed{
		AppointmentID: appointment.ID,
		BranchID:      appointment.BranchID,
		ServiceID:     appointment.ServiceID,
		StaffID:       appointment.StaffID,
		ClientID:      client.ID,
		ClientName:    client.FullName(),
		Phone:         session.Draft.PhoneNumber,
		BranchName:    appointment.BranchID,
		ServiceName:   appointment.ServiceID,
		StaffName:     appointment.StaffID,
		Start:         appointment.StartDatetime,
		End:           appointment.EndDatetime,
		Price:         appointment.Price,
		ConfirmedAt:   session.UpdatedAt,
	}

	if branch, err := s.Catalog.GetBranch(ctx, appointment.BranchID); err == nil {
		event.BranchName = branch.Name
		event.TimeZone = branch.Location().String()
	}
	if service, err := s.Catalog.GetService(ctx, appointment.BranchID, appointment.ServiceID); err == nil {
		event.ServiceName = service.Name
	}
	if staff, err := s.Catalog.GetStaff(ctx, appointment.StaffID); err == nil {
		event.StaffName = staff.Name()
	}
	return event
}

func (s *bookingService) Cancel(ctx context.Context, token string) error {
	session, err := s.Sessions.Cancel(ctx, token)
	if err != nil {
		return err
	}
	if err := s.OTP.Discard(ctx, session.Token); err != nil {
		s.Log.Warn("failed to discard otp challenge after cancel",
			"session", sealer.Redact(session.Token),
			"error", err,
		)
	}
	return nil
}

func (s *bookingService) OnSessionExpired(ctx context.Context, session *model.BookingSession) {
	if err := s.OTP.Discard(ctx, session.Token); err != nil {
		s.Log.Warn("failed to discard otp challenge of expired session",
			"session", sealer.Redact(session.Token),
			"error", err,
		)
	}
	if err := s.Events.SessionExpired(ctx, events.NewSessionExpired(session)); err != nil {
		s.Log.Warn("failed to publish session expiry",
			"session", sealer.Redact(session.Token),
			"error", err,
		)
	}
}

func (s *bookingService) LookupClient(ctx context.Context, req *model.LookupClientRequest) (*model.LookupClientResponse, error) {
	lookup := model.ClientDraft{DocumentType: req.DocumentType, DocumentNumber: req.DocumentNumber}
	s.Validator.NormalizeDraft(&lookup)
	req.DocumentType, req.DocumentNumber = lookup.DocumentType, lookup.DocumentNumber

	if err := s.validate(req, "Invalid document"); err != nil {
		return nil, err
	}

	client, err := s.Clients.FindByDocument(ctx, req.DocumentType, req.DocumentNumber)
	if err != nil {
		if errors.Is(err, clientserrors.ErrClientNotFound) {
			return &model.LookupClientResponse{Found: false}, nil
		}
		s.Log.Error("failed to look up client", "document_type", req.DocumentType, "error", err)
		return nil, apperrors.Internal("Failed to look up client", err)
	}
	return &model.LookupClientResponse{Found: true, Client: client}, nil
}

func (s *bookingService) LookupIdentity(ctx context.Context, dni string) (*identity.Person, error) {
	dni = strings.TrimSpace(dni)
	if s.Identity == nil {
		return &identity.Person{DNI: dni}, nil
	}
	return s.Identity.LookupDNI(ctx, dni)
}

func (s *bookingService) validate(req any, message string) error {
	if err := s.Validator.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation(message, verrs.Details())
		}
		return apperrors.Validation(message, map[string]any{"error": err.Error()})
	}
	return nil
}

func invalidDraft(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.InvalidDraft(verrs.Details())
	}
	return apperrors.InvalidDraft(map[string]any{"error": err.Error()})
}

func seconds(d time.Duration) int {
	return int(d.Round(time.Second) / time.Second)
}
