package model

import "time"

type AvailabilitySlot struct {
	Datetime    time.Time `json:"datetime"`
	EndDatetime time.Time `json:"end_datetime"`
	StaffID     string    `json:"staff_id"`
	StaffName   string    `json:"staff_name"`
}

type DayAvailability struct {
	Date           string             `json:"date"`
	Slots          []AvailabilitySlot `json:"slots"`
	AvailableCount int                `json:"available_count"`
}

type DaySummary struct {
	Date       string `json:"date"`
	Available  bool   `json:"available"`
	SlotsCount int    `json:"slots_count"`
}

// ResolvedSlot is a slot validated against the catalog, ready to be held.
type ResolvedSlot struct {
	Branch   *Branch
	Service  *Service
	Staff    *Staff
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Price    float64
}
