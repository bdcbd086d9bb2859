package domain

import "time"

type Session struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"persona_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
