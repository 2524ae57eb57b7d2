package model

import (
	"errors"
	"testing"
	"time"
)

var base = time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

func newSession() *BookingSession {
	return NewBookingSession("tok", SlotRequest{
		BranchID:  "1",
		ServiceID: "10",
		StaffID:   "5",
		Start:     base.Add(2 * time.Hour),
		End:       base.Add(3 * time.Hour),
	}, base, 15*time.Minute)
}

func TestBookingSession_HappyPath(t *testing.T) {
	s := newSession()
	if s.State != StateHeld || !s.HoldsSlot {
		t.Fatalf("expected new session to be HELD and holding, got %s/%v", s.State, s.HoldsSlot)
	}

	now := base.Add(time.Minute)
	if err := s.AttachDraft(ClientDraft{FirstName: "Ana"}, now.Add(5*time.Minute), now); err != nil {
		t.Fatalf("AttachDraft: %v", err)
	}
	if s.State != StateAwaitingOTP {
		t.Errorf("expected AWAITING_OTP, got %s", s.State)
	}
	if err := s.MarkVerified(now); err != nil {
		t.Fatalf("MarkVerified: %v", err)
	}
	if err := s.Confirm("appt-1", now); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if s.State != StateConfirmed || s.HoldsSlot || s.AppointmentID != "appt-1" {
		t.Errorf("unexpected confirmed session: %+v", s)
	}

	// Confirmed sessions never expire.
	if s.IsExpired(base.Add(24 * time.Hour)) {
		t.Error("confirmed session must not expire")
	}
}

func TestBookingSession_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *BookingSession) error
	}{
		{"verify from held", func(s *BookingSession) error { return s.MarkVerified(base) }},
		{"confirm from held", func(s *BookingSession) error { return s.Confirm("x", base) }},
		{"cancel twice", func(s *BookingSession) error {
			_ = s.Cancel(base)
			return s.Cancel(base)
		}},
		{"draft after cancel", func(s *BookingSession) error {
			_ = s.Cancel(base)
			return s.AttachDraft(ClientDraft{}, base, base)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(newSession())
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestBookingSession_ExpiryMonotonic(t *testing.T) {
	s := newSession()
	expiredAt := s.ExpiresAt

	if s.EffectiveState(expiredAt.Add(-time.Nanosecond)) != StateHeld {
		t.Error("expected HELD just before expiry")
	}
	for _, d := range []time.Duration{0, time.Second, time.Hour} {
		if got := s.EffectiveState(expiredAt.Add(d)); got != StateExpired {
			t.Errorf("at +%s expected EXPIRED, got %s", d, got)
		}
	}

	if err := s.AttachDraft(ClientDraft{}, expiredAt.Add(time.Hour), expiredAt); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if s.State != StateHeld {
		t.Errorf("failed transition must not mutate state, got %s", s.State)
	}
}

func TestBookingSession_AttachDraftNeverShortensExpiry(t *testing.T) {
	s := newSession()
	original := s.ExpiresAt

	if err := s.AttachDraft(ClientDraft{}, base.Add(time.Minute), base); err != nil {
		t.Fatal(err)
	}
	if !s.ExpiresAt.Equal(original) {
		t.Errorf("expiry shortened from %s to %s", original, s.ExpiresAt)
	}

	extended := original.Add(10 * time.Minute)
	if err := s.AttachDraft(ClientDraft{}, extended, base); err != nil {
		t.Fatal(err)
	}
	if !s.ExpiresAt.Equal(extended) {
		t.Errorf("expected expiry %s, got %s", extended, s.ExpiresAt)
	}
}

func TestInterval_Overlaps(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 6, 1, h, m, 0, 0, time.UTC) }

	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", Interval{at(10, 0), at(11, 0)}, Interval{at(10, 0), at(11, 0)}, true},
		{"partial", Interval{at(10, 0), at(11, 0)}, Interval{at(10, 30), at(11, 30)}, true},
		{"contained", Interval{at(10, 0), at(12, 0)}, Interval{at(10, 30), at(11, 0)}, true},
		{"back to back", Interval{at(10, 0), at(11, 0)}, Interval{at(11, 0), at(12, 0)}, false},
		{"disjoint", Interval{at(8, 0), at(9, 0)}, Interval{at(10, 0), at(11, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() not symmetric")
			}
		})
	}
}
