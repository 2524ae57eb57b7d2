package model

import "time"

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentNoShow    AppointmentStatus = "no_show"

	SourceOnline = "online"
)

// BlocksSlot reports whether an appointment in this status still occupies the
// staff member's time.
func (s AppointmentStatus) BlocksSlot() bool {
	return s == AppointmentPending || s == AppointmentConfirmed
}

func BlockingAppointmentStatuses() []AppointmentStatus {
	return []AppointmentStatus{AppointmentPending, AppointmentConfirmed}
}

type Appointment struct {
	ID            string            `json:"id" bson:"_id"`
	BranchID      string            `json:"branch_id" bson:"branch_id"`
	StaffID       string            `json:"staff_id" bson:"staff_id"`
	ServiceID     string            `json:"service_id" bson:"service_id"`
	StartDatetime time.Time         `json:"start_datetime" bson:"start_datetime"`
	EndDatetime   time.Time         `json:"end_datetime" bson:"end_datetime"`
	Status        AppointmentStatus `json:"status" bson:"status"`
	ClientRef     string            `json:"client_id" bson:"client_id"`
	Price         float64           `json:"price" bson:"price"`
	Notes         string            `json:"notes,omitempty" bson:"notes,omitempty"`
	Source        string            `json:"source" bson:"source"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
}

func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartDatetime, End: a.EndDatetime}
}
