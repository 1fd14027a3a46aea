package domain

import "time"

// OTP is a one-time registration code. Only the bcrypt hash of the code is
// stored; the plaintext goes out by email and is never persisted.
type OTP struct {
	ID        int64
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
