package events

import (
	"time"

	"stylo/internal/notifications"
	"stylo/pkg/model"
	"stylo/pkg/sealer"
)

const (
	TypeAppointmentConfirmed = "appointment.confirmed"
	TypeSessionExpired       = "session.expired"

	SchemaVersion = "1"
	Source        = "stylo.booking"
)

// AppointmentConfirmed is the handoff of a freshly confirmed appointment to
// downstream consumers. It carries display names so consumers never have to
// read the catalog.
type AppointmentConfirmed struct {
	AppointmentID string    `json:"appointment_id"`
	BranchID      string    `json:"branch_id"`
	ServiceID     string    `json:"service_id"`
	StaffID       string    `json:"staff_id"`
	ClientID      string    `json:"client_id"`
	ClientName    string    `json:"client_name"`
	Phone         string    `json:"phone"`
	BranchName    string    `json:"branch_name"`
	ServiceName   string    `json:"service_name"`
	StaffName     string    `json:"staff_name"`
	TimeZone      string    `json:"time_zone"`
	Start         time.Time `json:"start_datetime"`
	End           time.Time `json:"end_datetime"`
	Price         float64   `json:"price"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// Details renders the event as notification content. An unknown time zone
// falls back to UTC.
func (e AppointmentConfirmed) Details() notifications.AppointmentDetails {
	loc, err := time.LoadLocation(e.TimeZone)
	if err != nil || e.TimeZone == "" {
		loc = time.UTC
	}
	return notifications.AppointmentDetails{
		AppointmentID: e.AppointmentID,
		ClientName:    e.ClientName,
		Phone:         e.Phone,
		ServiceName:   e.ServiceName,
		StaffName:     e.StaffName,
		BranchName:    e.BranchName,
		Start:         e.Start,
		Location:      loc,
	}
}

type SessionExpired struct {
	SessionRef string    `json:"session_ref"`
	BranchID   string    `json:"branch_id"`
	ServiceID  string    `json:"service_id"`
	StaffID    string    `json:"staff_id"`
	Start      time.Time `json:"start_datetime"`
	End        time.Time `json:"end_datetime"`
	HadDraft   bool      `json:"had_draft"`
	ExpiredAt  time.Time `json:"expired_at"`
}

// NewSessionExpired builds the event from a session the store just released.
// HadDraft tells abandoned checkouts apart from untouched holds.
func NewSessionExpired(s *model.BookingSession) SessionExpired {
	return SessionExpired{
		SessionRef: sealer.Redact(s.Token),
		BranchID:   s.BranchID,
		ServiceID:  s.ServiceID,
		StaffID:    s.StaffID,
		Start:      s.StartDatetime,
		End:        s.EndDatetime,
		HadDraft:   s.Draft != nil,
		ExpiredAt:  s.UpdatedAt,
	}
}
