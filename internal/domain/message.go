package domain

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayRecord es la proyeccion de un mensaje para la vista de chat.
type DisplayRecord struct {
	Side string `json:"side"` // "right" para el usuario, "left" para el asistente
	Text string `json:"text"`
}

const (
	SideRight = "right"
	SideLeft  = "left"
)
