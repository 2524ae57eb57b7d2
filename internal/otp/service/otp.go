package service

import (
	"context"
	"math"
	"time"

	"stylo/internal/otp/repository"
	"stylo/pkg/clock"
	apperrors "stylo/pkg/errors"
	"stylo/pkg/logger"
	"stylo/pkg/metrics"
	"stylo/pkg/model"
	"stylo/pkg/sealer"
)

const (
	actionIssue  = "issue"
	actionResend = "resend"
	actionVerify = "verify"
)

// CodeSealer generates codes and keeps only keyed digests of them.
type CodeSealer interface {
	NumericCode(length int) (string, error)
	Seal(scope, code string) string
	Match(scope, code, digest string) bool
}

type Settings struct {
	TTL            time.Duration
	Length         int
	MaxAttempts    int
	MaxResends     int
	ResendCooldown time.Duration
}

type OTPService interface {
	// Issue replaces any challenge of the session with a fresh code. A prior
	// challenge counts as a resend.
	Issue(ctx context.Context, token, phone string) (*model.OTPChallenge, string, error)
	Resend(ctx context.Context, token, phone string) (*model.OTPChallenge, string, error)
	Verify(ctx context.Context, token, code string) error
	Discard(ctx context.Context, token string) error
}

type otpService struct {
	store    repository.ChallengeStore
	sealer   CodeSealer
	clock    clock.Clock
	settings Settings
	metrics  *metrics.BookingMetrics
	log      *logger.Logger
}

func NewOTPService(
	store repository.ChallengeStore,
	codes CodeSealer,
	clk clock.Clock,
	settings Settings,
	m *metrics.BookingMetrics,
	log *logger.Logger,
) OTPService {
	return &otpService{
		store:    store,
		sealer:   codes,
		clock:    clk,
		settings: settings,
		metrics:  m,
		log:      log,
	}
}

func (s *otpService) Issue(ctx context.Context, token, phone string) (*model.OTPChallenge, string, error) {
	return s.issue(ctx, actionIssue, token, phone)
}

func (s *otpService) Resend(ctx context.Context, token, phone string) (*model.OTPChallenge, string, error) {
	return s.issue(ctx, actionResend, token, phone)
}

func (s *otpService) issue(ctx context.Context, action, token, phone string) (*model.OTPChallenge, string, error) {
	code, err := s.sealer.NumericCode(s.settings.Length)
	if err != nil {
		return nil, "", apperrors.Internal("Failed to generate verification code", err)
	}
	digest := s.sealer.Seal(token, code)

	var (
		issued  *model.OTPChallenge
		limited *apperrors.AppError
	)

	err = s.store.Mutate(ctx, token, func(current *model.OTPChallenge) (*model.OTPChallenge, repository.Op) {
		issued, limited = nil, nil
		now := s.clock.Now()

		next := &model.OTPChallenge{
			SessionToken: token,
			PhoneNumber:  phone,
			CodeDigest:   digest,
			IssuedAt:     now,
			ExpiresAt:    now.Add(s.settings.TTL),
			MaxAttempts:  s.settings.MaxAttempts,
		}

		if current != nil {
			if current.ResendCount >= s.settings.MaxResends {
				limited = apperrors.ResendRateLimited(0)
				return nil, repository.OpKeep
			}
			// A fresh send-otp, for instance with a corrected phone, skips
			// the cooldown but still counts against the ceiling.
			if wait := current.IssuedAt.Add(s.settings.ResendCooldown).Sub(now); action == actionResend && wait > 0 {
				limited = apperrors.ResendRateLimited(int(math.Ceil(wait.Seconds())))
				return nil, repository.OpKeep
			}
			next.ResendCount = current.ResendCount + 1
			if next.PhoneNumber == "" {
				next.PhoneNumber = current.PhoneNumber
			}
		}

		issued = next
		return next, repository.OpSave
	})
	if err != nil {
		s.metrics.ObserveOTP(action, "error")
		s.log.Error("failed to store otp challenge",
			"session", sealer.Redact(token),
			"action", action,
			"error", err,
		)
		return nil, "", apperrors.Internal("Failed to issue verification code", err)
	}
	if limited != nil {
		s.metrics.ObserveOTP(action, "rate_limited")
		return nil, "", limited
	}

	s.metrics.ObserveOTP(action, "issued")
	return issued, code, nil
}

func (s *otpService) Verify(ctx context.Context, token, code string) error {
	var result *apperrors.AppError
	outcome := ""

	err := s.store.Mutate(ctx, token, func(current *model.OTPChallenge) (*model.OTPChallenge, repository.Op) {
		now := s.clock.Now()
		result = nil

		switch {
		case current == nil:
			outcome = "missing"
			result = apperrors.OTPExpired()
			return nil, repository.OpKeep
		case current.IsExpired(now):
			outcome = "expired"
			result = apperrors.OTPExpired()
			return nil, repository.OpKeep
		case current.IsExhausted():
			outcome = "exhausted"
			result = apperrors.OTPExhausted()
			return nil, repository.OpKeep
		}

		if !s.sealer.Match(token, code, current.CodeDigest) {
			outcome = "mismatch"
			next := *current
			next.AttemptsUsed++
			result = apperrors.OTPMismatch(next.RemainingAttempts())
			return &next, repository.OpSave
		}

		outcome = "verified"
		return nil, repository.OpDelete
	})
	if err != nil {
		s.metrics.ObserveOTP(actionVerify, "error")
		s.log.Error("failed to verify otp challenge",
			"session", sealer.Redact(token),
			"error", err,
		)
		return apperrors.Internal("Failed to verify code", err)
	}

	s.metrics.ObserveOTP(actionVerify, outcome)
	if result != nil {
		s.log.Info("otp verification rejected",
			"session", sealer.Redact(token),
			"outcome", outcome,
		)
		return result
	}
	return nil
}

func (s *otpService) Discard(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		return apperrors.Internal("Failed to discard verification code", err)
	}
	return nil
}
