package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	sessionserrors "stylo/internal/sessions/errors"
	"stylo/pkg/clock"
	"stylo/pkg/model"
)

// MemorySessionRepository keeps sessions and appointments in process. A mutex
// per staff member serializes Start and Confirm the way the guard document
// does for Mongo.
type MemorySessionRepository struct {
	clock clock.Clock

	mu           sync.RWMutex
	sessions     map[string]model.BookingSession
	appointments map[string]model.Appointment

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemorySessionRepository(clk clock.Clock) *MemorySessionRepository {
	return &MemorySessionRepository{
		clock:        clk,
		sessions:     make(map[string]model.BookingSession),
		appointments: make(map[string]model.Appointment),
		locks:        make(map[string]*sync.Mutex),
	}
}

func (r *MemorySessionRepository) staffLock(staffID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	lock, ok := r.locks[staffID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[staffID] = lock
	}
	return lock
}

func cloneSession(s model.BookingSession) *model.BookingSession {
	if s.Draft != nil {
		draft := *s.Draft
		s.Draft = &draft
	}
	return &s
}

func (r *MemorySessionRepository) Start(_ context.Context, session *model.BookingSession) ([]*model.BookingSession, error) {
	lock := r.staffLock(session.StaffID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.Token]; exists {
		return nil, sessionserrors.ErrSlotTaken
	}

	now := session.CreatedAt
	released := r.expireStaffHoldsLocked(session.StaffID, now)
	if r.slotTakenLocked(session.StaffID, session.Interval(), now, "") {
		return released, sessionserrors.ErrSlotTaken
	}

	r.sessions[session.Token] = *cloneSession(*session)
	return released, nil
}

func (r *MemorySessionRepository) expireStaffHoldsLocked(staffID string, now time.Time) []*model.BookingSession {
	var released []*model.BookingSession
	for token, s := range r.sessions {
		if s.StaffID != staffID || !s.HoldsSlot || now.Before(s.ExpiresAt) {
			continue
		}
		if err := s.Expire(now); err != nil {
			continue
		}
		s.Version++
		r.sessions[token] = s
		released = append(released, cloneSession(s))
	}
	return released
}

func (r *MemorySessionRepository) slotTakenLocked(staffID string, slot model.Interval, now time.Time, exceptToken string) bool {
	for _, a := range r.appointments {
		if a.StaffID == staffID && a.Status.BlocksSlot() && a.Interval().Overlaps(slot) {
			return true
		}
	}
	for token, s := range r.sessions {
		if token == exceptToken || s.StaffID != staffID || !s.HoldsSlot {
			continue
		}
		if now.Before(s.ExpiresAt) && s.Interval().Overlaps(slot) {
			return true
		}
	}
	return false
}

func (r *MemorySessionRepository) Get(_ context.Context, token string) (*model.BookingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[token]
	if !ok {
		return nil, sessionserrors.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (r *MemorySessionRepository) Save(_ context.Context, session *model.BookingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(session)
}

func (r *MemorySessionRepository) saveLocked(session *model.BookingSession) error {
	stored, ok := r.sessions[session.Token]
	if !ok {
		return sessionserrors.ErrSessionNotFound
	}
	if stored.Version != session.Version {
		return sessionserrors.ErrVersionConflict
	}

	session.Version++
	r.sessions[session.Token] = *cloneSession(*session)
	return nil
}

func (r *MemorySessionRepository) Confirm(_ context.Context, session *model.BookingSession, appointment *model.Appointment) error {
	lock := r.staffLock(session.StaffID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	now := session.UpdatedAt
	stored, ok := r.sessions[session.Token]
	if !ok {
		return sessionserrors.ErrSessionNotFound
	}
	if stored.Version != session.Version {
		return sessionserrors.ErrVersionConflict
	}
	if !stored.HoldsSlot || !now.Before(stored.ExpiresAt) {
		return sessionserrors.ErrHoldReleased
	}
	if r.slotTakenLocked(session.StaffID, session.Interval(), now, session.Token) {
		return sessionserrors.ErrSlotTaken
	}

	r.appointments[appointment.ID] = *appointment
	return r.saveLocked(session)
}

func (r *MemorySessionRepository) FindAppointment(_ context.Context, id string) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, sessionserrors.ErrAppointmentNotFound
	}
	return &a, nil
}

// AddAppointment seeds an appointment booked outside the session flow.
func (r *MemorySessionRepository) AddAppointment(a model.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments[a.ID] = a
}

func (r *MemorySessionRepository) BusyIntervals(_ context.Context, staffID string, from, to time.Time) ([]model.Interval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.clock.Now()
	window := model.Interval{Start: from, End: to}

	var out []model.Interval
	for _, a := range r.appointments {
		if a.StaffID == staffID && a.Status.BlocksSlot() && a.Interval().Overlaps(window) {
			out = append(out, a.Interval())
		}
	}
	for _, s := range r.sessions {
		if s.StaffID == staffID && s.HoldsSlot && now.Before(s.ExpiresAt) && s.Interval().Overlaps(window) {
			out = append(out, s.Interval())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *MemorySessionRepository) ExpireStale(_ context.Context, now time.Time) ([]*model.BookingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*model.BookingSession
	for token, s := range r.sessions {
		if !s.HoldsSlot || now.Before(s.ExpiresAt) {
			continue
		}
		if err := s.Expire(now); err != nil {
			continue
		}
		s.Version++
		r.sessions[token] = s
		expired = append(expired, cloneSession(s))
	}
	return expired, nil
}
