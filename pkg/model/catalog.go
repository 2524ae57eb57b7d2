package model

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // branch timezones must resolve on minimal images
)

const DefaultTimeZone = "America/Lima"

// ClockTime is a wall-clock time of day in "HH:MM" form.
type ClockTime string

// Offset returns the duration since midnight.
func (c ClockTime) Offset() (time.Duration, error) {
	t, err := time.Parse("15:04", string(c))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", c, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

type Branch struct {
	ID           string        `json:"id" bson:"_id"`
	BusinessName string        `json:"business_name" bson:"business_name"`
	Name         string        `json:"name" bson:"name"`
	Address      string        `json:"address" bson:"address"`
	TimeZone     string        `json:"timezone" bson:"timezone"`
	OpeningTime  ClockTime     `json:"opening_time" bson:"opening_time"`
	ClosingTime  ClockTime     `json:"closing_time" bson:"closing_time"`
	Hours        []BranchHours `json:"hours" bson:"hours"`
	Active       bool          `json:"is_active" bson:"is_active"`
}

// BranchHours uses time.Weekday numbering (Sunday = 0).
type BranchHours struct {
	Weekday int       `json:"weekday" bson:"weekday"`
	Open    ClockTime `json:"open" bson:"open"`
	Close   ClockTime `json:"close" bson:"close"`
	IsOpen  bool      `json:"is_open" bson:"is_open"`
}

func (b *Branch) Location() *time.Location {
	name := b.TimeZone
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HoursFor returns the regular opening hours for a weekday. Branches without
// a weekly table fall back to their opening/closing time every day.
func (b *Branch) HoursFor(day time.Weekday) (BranchHours, bool) {
	if len(b.Hours) == 0 {
		if b.OpeningTime == "" || b.ClosingTime == "" {
			return BranchHours{}, false
		}
		return BranchHours{Weekday: int(day), Open: b.OpeningTime, Close: b.ClosingTime, IsOpen: true}, true
	}
	for _, h := range b.Hours {
		if h.Weekday == int(day) {
			return h, h.IsOpen
		}
	}
	return BranchHours{}, false
}

type SpecialDateType string

const (
	SpecialDateClosed       SpecialDateType = "closed"
	SpecialDateHoliday      SpecialDateType = "holiday"
	SpecialDateSpecialHours SpecialDateType = "special_hours"
)

type SpecialDate struct {
	ID       string          `json:"id" bson:"_id"`
	BranchID string          `json:"branch_id" bson:"branch_id"`
	Date     string          `json:"date" bson:"date"`
	Type     SpecialDateType `json:"type" bson:"type"`
	Open     ClockTime       `json:"open_time,omitempty" bson:"open_time,omitempty"`
	Close    ClockTime       `json:"close_time,omitempty" bson:"close_time,omitempty"`
	Reason   string          `json:"reason,omitempty" bson:"reason,omitempty"`
}

type Service struct {
	ID              string  `json:"id" bson:"_id"`
	BranchID        string  `json:"branch_id" bson:"branch_id"`
	Name            string  `json:"name" bson:"name"`
	DurationMinutes int     `json:"duration" bson:"duration"`
	BufferBefore    int     `json:"buffer_before" bson:"buffer_before"`
	BufferAfter     int     `json:"buffer_after" bson:"buffer_after"`
	Price           float64 `json:"price" bson:"price"`
	Active          bool    `json:"is_active" bson:"is_active"`
}

// TotalDuration is the time the staff member is occupied, buffers included.
func (s *Service) TotalDuration() time.Duration {
	return time.Duration(s.DurationMinutes+s.BufferBefore+s.BufferAfter) * time.Minute
}

type StaffService struct {
	ServiceID      string   `json:"service_id" bson:"service_id"`
	CustomPrice    *float64 `json:"custom_price,omitempty" bson:"custom_price,omitempty"`
	CustomDuration *int     `json:"custom_duration,omitempty" bson:"custom_duration,omitempty"`
	Active         bool     `json:"is_active" bson:"is_active"`
}

type Staff struct {
	ID        string         `json:"id" bson:"_id"`
	FirstName string         `json:"first_name" bson:"first_name"`
	LastName  string         `json:"last_name" bson:"last_name"`
	BranchIDs []string       `json:"branch_ids" bson:"branch_ids"`
	Services  []StaffService `json:"services" bson:"services"`
	Active    bool           `json:"is_active" bson:"is_active"`
}

func (s *Staff) Name() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

func (s *Staff) WorksAt(branchID string) bool {
	for _, id := range s.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}

func (s *Staff) Offering(serviceID string) (StaffService, bool) {
	for _, offered := range s.Services {
		if offered.ServiceID == serviceID && offered.Active {
			return offered, true
		}
	}
	return StaffService{}, false
}

// DurationFor applies the staff member's custom duration, keeping the
// service buffers.
func (s *Staff) DurationFor(service *Service) time.Duration {
	offered, ok := s.Offering(service.ID)
	if ok && offered.CustomDuration != nil && *offered.CustomDuration > 0 {
		return time.Duration(*offered.CustomDuration+service.BufferBefore+service.BufferAfter) * time.Minute
	}
	return service.TotalDuration()
}

func (s *Staff) PriceFor(service *Service) float64 {
	offered, ok := s.Offering(service.ID)
	if ok && offered.CustomPrice != nil {
		return *offered.CustomPrice
	}
	return service.Price
}

type WorkSchedule struct {
	ID        string    `json:"id" bson:"_id"`
	StaffID   string    `json:"staff_id" bson:"staff_id"`
	BranchID  string    `json:"branch_id" bson:"branch_id"`
	Weekday   int       `json:"weekday" bson:"weekday"`
	Start     ClockTime `json:"start_time" bson:"start_time"`
	End       ClockTime `json:"end_time" bson:"end_time"`
	IsWorking bool      `json:"is_working" bson:"is_working"`
}

type BlockedTime struct {
	ID      string    `json:"id" bson:"_id"`
	StaffID string    `json:"staff_id" bson:"staff_id"`
	Start   time.Time `json:"start_datetime" bson:"start_datetime"`
	End     time.Time `json:"end_datetime" bson:"end_datetime"`
	Reason  string    `json:"reason,omitempty" bson:"reason,omitempty"`
}

func (b *BlockedTime) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}
