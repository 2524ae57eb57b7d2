package model

import "time"

// StartBookingRequest accepts start_datetime either as RFC3339 or as a local
// "2006-01-02T15:04" wall time in the branch timezone.
type StartBookingRequest struct {
	BranchID      string `json:"branch_id" validate:"required,max=64"`
	ServiceID     string `json:"service_id" validate:"required,max=64"`
	StaffID       string `json:"staff_id" validate:"required,max=64"`
	StartDatetime string `json:"start_datetime" validate:"required"`
	Notes         string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type BookingSummary struct {
	BusinessName    string    `json:"business_name"`
	BranchName      string    `json:"branch_name"`
	BranchAddress   string    `json:"branch_address"`
	ServiceName     string    `json:"service_name"`
	DurationMinutes int       `json:"duration_minutes"`
	StaffName       string    `json:"staff_name"`
	StartDatetime   time.Time `json:"start_datetime"`
	EndDatetime     time.Time `json:"end_datetime"`
	Price           float64   `json:"price"`
}

type StartBookingResponse struct {
	SessionToken string         `json:"session_token"`
	ExpiresIn    int            `json:"expires_in"`
	Summary      BookingSummary `json:"booking_summary"`
}

// SendOTPRequest is the JSON form of send-otp. The multipart form carries
// the same fields plus a "photo" file part.
type SendOTPRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
	ClientDraft
}

type OTPSentResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
	DebugOTP  string `json:"debug_otp,omitempty"`
}

type VerifyOTPRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
	OTPCode      string `json:"otp_code" validate:"required,numeric,min=4,max=10"`
}

type SessionTokenRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
}

type ConfirmationResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Appointment *Appointment `json:"appointment"`
}

type LookupClientRequest struct {
	DocumentType   string `json:"document_type" validate:"required,oneof=dni pasaporte ce"`
	DocumentNumber string `json:"document_number" validate:"required,min=6,max=20,alphanum,document_number"`
}

type LookupClientResponse struct {
	Found  bool    `json:"found"`
	Client *Client `json:"client,omitempty"`
}

type LookupIdentityRequest struct {
	DNI string `json:"dni"`
}
