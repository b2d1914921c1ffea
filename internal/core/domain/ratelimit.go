package domain

import "time"

// RateLimitWindow counts requests from one key inside a fixed window.
type RateLimitWindow struct {
	Key     string
	Count   int
	ResetAt time.Time
}
