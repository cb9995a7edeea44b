package model

import "time"

// User is the per-user ledger record. ID is the platform (chat) user id.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username,omitempty"`
	Diamonds    int64     `json:"diamonds"`
	Referrals   int       `json:"referrals"`
	ReferredBy  int64     `json:"referred_by,omitempty"`
	RefCredited bool      `json:"ref_credited"`
	Joined      bool      `json:"joined"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// CheckIn tracks the weekly check-in claim per user.
type CheckIn struct {
	UserID    int64     `json:"user_id"`
	LastClaim time.Time `json:"last_claim"`
	Claims    int       `json:"claims"`
}
