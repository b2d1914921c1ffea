package domain

import "time"

// OTPRecord is a one-time password issued to an owner, keyed by the
// lower-cased identifier.
type OTPRecord struct {
	Code      string    `json:"code"`
	OwnerKey  string    `json:"ownerKey"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
}

// Live reports whether the record can still be redeemed at now.
func (r OTPRecord) Live(now time.Time) bool {
	return !r.Used && now.Before(r.ExpiresAt)
}
