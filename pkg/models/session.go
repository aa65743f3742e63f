package models

import "time"

// Session represents an authenticated admin session
type Session struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
