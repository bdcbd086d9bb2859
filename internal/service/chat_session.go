package service

import (
	"sync"
	"time"

	"al-kul/internal/domain"
)

// chatSession es el estado explicito de una sesion. Todas las mutaciones del
// historial pasan por mu.
type chatSession struct {
	mu         sync.Mutex
	info       domain.Session
	persona    domain.Persona
	transcript domain.Transcript
	calls      map[uint64]int // llamadas remotas en curso por generacion
}

func newChatSession(info domain.Session, persona domain.Persona) *chatSession {
	return &chatSession{
		info:       info,
		persona:    persona,
		transcript: domain.NewTranscript(persona.Greeting),
		calls:      make(map[uint64]int),
	}
}

func (cs *chatSession) busy() bool {
	return cs.calls[cs.transcript.Generation] > 0
}

func (cs *chatSession) snapshot() Snapshot {
	msgs := make([]domain.Message, len(cs.transcript.Messages))
	copy(msgs, cs.transcript.Messages)
	return Snapshot{
		SessionID:  cs.info.ID,
		PersonaID:  cs.persona.ID,
		Generation: cs.transcript.Generation,
		State:      cs.transcript.State(),
		InFlight:   cs.busy(),
		Messages:   msgs,
		Display:    domain.Render(msgs),
	}
}

// sessionRegistry mantiene las sesiones vivas del proceso. No hay estado compartido entre sesiones.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*chatSession
	now      func() time.Time
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*chatSession),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *sessionRegistry) add(cs *chatSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, existing := range r.sessions {
		if expired(existing.info, now) {
			delete(r.sessions, id)
		}
	}
	r.sessions[cs.info.ID] = cs
}

func (r *sessionRegistry) get(id string) (*chatSession, bool) {
	r.mu.RLock()
	cs, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if expired(cs.info, r.now()) {
		r.remove(id)
		return nil, false
	}
	return cs, true
}

func (r *sessionRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *sessionRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func expired(info domain.Session, now time.Time) bool {
	return !info.ExpiresAt.IsZero() && now.After(info.ExpiresAt)
}
