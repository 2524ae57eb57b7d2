package model

import (
	"errors"
	"fmt"
	"time"
)

type SessionState string

const (
	StateHeld        SessionState = "HELD"
	StateAwaitingOTP SessionState = "AWAITING_OTP"
	StateVerified    SessionState = "VERIFIED"
	StateConfirmed   SessionState = "CONFIRMED"
	StateExpired     SessionState = "EXPIRED"
	StateCancelled   SessionState = "CANCELLED"
)

var (
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrSessionExpired    = errors.New("session expired")
)

var transitions = map[SessionState]map[SessionState]bool{
	StateHeld: {
		StateAwaitingOTP: true,
		StateExpired:     true,
		StateCancelled:   true,
	},
	StateAwaitingOTP: {
		StateAwaitingOTP: true,
		StateVerified:    true,
		StateExpired:     true,
		StateCancelled:   true,
	},
	StateVerified: {
		StateConfirmed: true,
		StateExpired:   true,
		StateCancelled: true,
	},
}

// HoldsSlot reports whether a session in this state occupies its slot.
func (s SessionState) HoldsSlot() bool {
	return s == StateHeld || s == StateAwaitingOTP || s == StateVerified
}

func (s SessionState) IsTerminal() bool {
	return s == StateConfirmed || s == StateExpired || s == StateCancelled
}

func (s SessionState) CanTransitionTo(to SessionState) bool {
	return transitions[s][to]
}

// ActiveStates lists the states that hold a slot, for store queries.
func ActiveStates() []SessionState {
	return []SessionState{StateHeld, StateAwaitingOTP, StateVerified}
}

type Interval struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// Overlaps treats intervals as half-open, so back-to-back slots do not clash.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

// SlotRequest identifies the slot a session is started for.
type SlotRequest struct {
	BranchID  string
	ServiceID string
	StaffID   string
	Start     time.Time
	End       time.Time
	Notes     string
	Price     float64
}

// BookingSession is the booking finite-state machine. Slot fields never change
// after creation and the state only moves through the transition methods
// below; stores persist whatever those methods produce.
type BookingSession struct {
	Token         string       `json:"session_token" bson:"_id"`
	BranchID      string       `json:"branch_id" bson:"branch_id"`
	ServiceID     string       `json:"service_id" bson:"service_id"`
	StaffID       string       `json:"staff_id" bson:"staff_id"`
	StartDatetime time.Time    `json:"start_datetime" bson:"start_datetime"`
	EndDatetime   time.Time    `json:"end_datetime" bson:"end_datetime"`
	Notes         string       `json:"notes,omitempty" bson:"notes,omitempty"`
	Price         float64      `json:"price" bson:"price"`
	State         SessionState `json:"state" bson:"state"`
	HoldsSlot     bool         `json:"-" bson:"holds_slot"`
	Draft         *ClientDraft `json:"client_draft,omitempty" bson:"client_draft,omitempty"`
	AppointmentID string       `json:"appointment_id,omitempty" bson:"appointment_id,omitempty"`
	ExpiresAt     time.Time    `json:"expires_at" bson:"expires_at"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" bson:"updated_at"`
	Version       int64        `json:"-" bson:"version"`
}

func NewBookingSession(token string, slot SlotRequest, now time.Time, ttl time.Duration) *BookingSession {
	return &BookingSession{
		Token:         token,
		BranchID:      slot.BranchID,
		ServiceID:     slot.ServiceID,
		StaffID:       slot.StaffID,
		StartDatetime: slot.Start.UTC(),
		EndDatetime:   slot.End.UTC(),
		Notes:         slot.Notes,
		Price:         slot.Price,
		State:         StateHeld,
		HoldsSlot:     true,
		ExpiresAt:     now.Add(ttl),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *BookingSession) Interval() Interval {
	return Interval{Start: s.StartDatetime, End: s.EndDatetime}
}

// IsExpired is true once the TTL elapsed for any session that still holds its
// slot. Confirmed and cancelled sessions never expire.
func (s *BookingSession) IsExpired(now time.Time) bool {
	return s.State.HoldsSlot() && !now.Before(s.ExpiresAt)
}

// EffectiveState is the state observers must act on: a stale hold reads as
// EXPIRED even before the store has persisted the transition.
func (s *BookingSession) EffectiveState(now time.Time) SessionState {
	if s.IsExpired(now) {
		return StateExpired
	}
	return s.State
}

// ExpiresIn is the remaining lifetime, floored at zero.
func (s *BookingSession) ExpiresIn(now time.Time) time.Duration {
	return max(s.ExpiresAt.Sub(now), 0)
}

func (s *BookingSession) transition(to SessionState, now time.Time) error {
	if !s.State.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
	}
	s.State = to
	s.HoldsSlot = to.HoldsSlot()
	s.UpdatedAt = now
	return nil
}

func (s *BookingSession) guardLive(now time.Time) error {
	if s.IsExpired(now) {
		return ErrSessionExpired
	}
	return nil
}

// AttachDraft records the client details and moves the session to
// AWAITING_OTP. extendTo may push the expiry forward to cover the OTP window
// but never shortens it.
func (s *BookingSession) AttachDraft(draft ClientDraft, extendTo time.Time, now time.Time) error {
	if err := s.guardLive(now); err != nil {
		return err
	}
	if err := s.transition(StateAwaitingOTP, now); err != nil {
		return err
	}
	s.Draft = &draft
	if extendTo.After(s.ExpiresAt) {
		s.ExpiresAt = extendTo
	}
	return nil
}

func (s *BookingSession) MarkVerified(now time.Time) error {
	if err := s.guardLive(now); err != nil {
		return err
	}
	return s.transition(StateVerified, now)
}

func (s *BookingSession) Confirm(appointmentID string, now time.Time) error {
	if err := s.guardLive(now); err != nil {
		return err
	}
	if err := s.transition(StateConfirmed, now); err != nil {
		return err
	}
	s.AppointmentID = appointmentID
	return nil
}

func (s *BookingSession) Expire(now time.Time) error {
	return s.transition(StateExpired, now)
}

func (s *BookingSession) Cancel(now time.Time) error {
	return s.transition(StateCancelled, now)
}
