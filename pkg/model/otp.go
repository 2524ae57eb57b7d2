package model

import "time"

// OTPChallenge is the verification artifact bound to one session. Only the
// keyed digest of the code is stored.
type OTPChallenge struct {
	SessionToken string    `json:"session_token"`
	PhoneNumber  string    `json:"phone_number"`
	CodeDigest   string    `json:"code_digest"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	AttemptsUsed int       `json:"attempts_used"`
	MaxAttempts  int       `json:"max_attempts"`
	ResendCount  int       `json:"resend_count"`
}

func (c *OTPChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *OTPChallenge) IsExhausted() bool {
	return c.AttemptsUsed >= c.MaxAttempts
}

func (c *OTPChallenge) RemainingAttempts() int {
	return max(c.MaxAttempts-c.AttemptsUsed, 0)
}
