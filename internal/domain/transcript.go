package domain

import (
	"strings"
	"time"
)

type TurnState string

const (
	StateIdle             TurnState = "idle"
	StateAwaitingResponse TurnState = "awaiting_response"
)

// Transcript es el historial lineal de una sesion. Las transiciones devuelven
// un Transcript nuevo y nunca mutan el receptor.
type Transcript struct {
	Messages   []Message `json:"messages"`
	Generation uint64    `json:"generation"`
	greeting   string
}

// Ticket identifica la llamada pendiente contra una generacion concreta del historial.
type Ticket struct {
	Generation uint64
	Length     int
}

func NewTranscript(greeting string) Transcript {
	return Transcript{
		Messages: []Message{seedMessage(greeting)},
		greeting: greeting,
	}
}

func seedMessage(greeting string) Message {
	return Message{Role: RoleAssistant, Content: greeting, CreatedAt: time.Now().UTC()}
}

// State devuelve awaiting_response cuando el ultimo mensaje es del usuario.
func (t Transcript) State() TurnState {
	if n := len(t.Messages); n > 0 && t.Messages[n-1].Role == RoleUser {
		return StateAwaitingResponse
	}
	return StateIdle
}

// SubmitUserTurn agrega el turno del usuario. Un texto vacio tras el trim se ignora.
func (t Transcript) SubmitUserTurn(text string) (Transcript, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return t, false
	}
	return t.with(Message{Role: RoleUser, Content: text, CreatedAt: time.Now().UTC()}), true
}

func (t Transcript) PendingTicket() (Ticket, bool) {
	if t.State() != StateAwaitingResponse {
		return Ticket{}, false
	}
	return Ticket{Generation: t.Generation, Length: len(t.Messages)}, true
}

// ApplyCompletion agrega la respuesta del asistente solo si el ticket sigue vigente.
// Una respuesta emitida antes de un Clear (u otro cambio) se descarta.
func (t Transcript) ApplyCompletion(ticket Ticket, text string) (Transcript, bool) {
	current, ok := t.PendingTicket()
	if !ok || current != ticket {
		return t, false
	}
	return t.with(Message{Role: RoleAssistant, Content: text, CreatedAt: time.Now().UTC()}), true
}

func (t Transcript) Clear() Transcript {
	return Transcript{
		Messages:   []Message{seedMessage(t.greeting)},
		Generation: t.Generation + 1,
		greeting:   t.greeting,
	}
}

func (t Transcript) Greeting() string {
	return t.greeting
}

// Render proyecta el historial a registros de vista sin efectos secundarios.
func (t Transcript) Render() []DisplayRecord {
	return Render(t.Messages)
}

func Render(messages []Message) []DisplayRecord {
	out := make([]DisplayRecord, 0, len(messages))
	for _, m := range messages {
		side := SideLeft
		if m.Role == RoleUser {
			side = SideRight
		}
		out = append(out, DisplayRecord{Side: side, Text: m.Content})
	}
	return out
}

func (t Transcript) with(m Message) Transcript {
	msgs := make([]Message, len(t.Messages), len(t.Messages)+1)
	copy(msgs, t.Messages)
	return Transcript{
		Messages:   append(msgs, m),
		Generation: t.Generation,
		greeting:   t.greeting,
	}
}
