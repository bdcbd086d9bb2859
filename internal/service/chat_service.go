package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"al-kul/internal/domain"
	"al-kul/internal/llm"
	"al-kul/internal/repository"
)

// UserFacingNotice es el unico detalle de error que ve el usuario final.
const UserFacingNotice = "Error generating response. Please try again later."

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrSessionNotFound          = errors.New("session not found")
	ErrTurnInFlight             = errors.New("response already in progress")
	ErrCompletionUnavailable    = errors.New("completion unavailable")
)

// RemoteCallError envuelve cualquier fallo del servicio de completions.
// No es fatal: el turno pendiente queda disponible para reintentar.
type RemoteCallError struct {
	SessionID string
	Err       error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("completion unavailable for session %s: %v", e.SessionID, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

func (e *RemoteCallError) Is(target error) bool { return target == ErrCompletionUnavailable }

type Snapshot struct {
	SessionID  string                 `json:"session_id"`
	PersonaID  string                 `json:"persona_id"`
	Generation uint64                 `json:"generation"`
	State      domain.TurnState       `json:"state"`
	InFlight   bool                   `json:"in_flight"`
	Messages   []domain.Message       `json:"messages"`
	Display    []domain.DisplayRecord `json:"display"`
}

type ResolveStatus string

const (
	ResolveAnswered ResolveStatus = "answered"
	ResolveIdle     ResolveStatus = "idle"
	ResolveStale    ResolveStatus = "stale"
	ResolveFailed   ResolveStatus = "failed"
)

type ResolveResult struct {
	Status   ResolveStatus `json:"status"`
	Notice   string        `json:"notice,omitempty"`
	Snapshot Snapshot      `json:"transcript"`
}

type SubmitResult struct {
	Accepted bool     `json:"accepted"`
	Snapshot Snapshot `json:"transcript"`
}

// ChatService es el gestor del historial por sesion: decide cuando toca pedir
// una completion, la pide y actualiza el historial con el resultado.
type ChatService struct {
	logger         *zap.Logger
	llmClient      llm.LLMClient
	personas       repository.PersonaRepository
	builder        CompletionRequestBuilder
	registry       *sessionRegistry
	flights        singleflight.Group
	defaultPersona string
	sessionTTL     time.Duration
	callTimeout    time.Duration
}

type ChatServiceOption func(*ChatService)

func WithCallTimeout(d time.Duration) ChatServiceOption {
	return func(s *ChatService) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

func WithSessionTTL(d time.Duration) ChatServiceOption {
	return func(s *ChatService) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

func WithDefaultPersona(id string) ChatServiceOption {
	return func(s *ChatService) {
		if id = strings.TrimSpace(id); id != "" {
			s.defaultPersona = id
		}
	}
}

func NewChatService(logger *zap.Logger, llmClient llm.LLMClient, personas repository.PersonaRepository, opts ...ChatServiceOption) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ChatService{
		logger:         logger,
		llmClient:      llmClient,
		personas:       personas,
		registry:       newSessionRegistry(),
		defaultPersona: "companion",
		sessionTTL:     24 * time.Hour,
		callTimeout:    60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession abre una sesion con el saludo de la persona como primer mensaje.
func (s *ChatService) CreateSession(ctx context.Context, personaID string) (Snapshot, error) {
	if s == nil || s.llmClient == nil || s.personas == nil {
		return Snapshot{}, ErrChatServiceNotConfigured
	}
	personaID = strings.TrimSpace(personaID)
	if personaID == "" {
		personaID = s.defaultPersona
	}
	persona, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get persona: %w", err)
	}

	now := time.Now().UTC()
	cs := newChatSession(domain.Session{
		ID:        uuid.NewString(),
		PersonaID: persona.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}, persona)
	s.registry.add(cs)

	s.logger.Info("session created", zap.String("session_id", cs.info.ID), zap.String("persona", persona.ID))

	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.snapshot(), nil
}

func (s *ChatService) Snapshot(_ context.Context, sessionID string) (Snapshot, error) {
	cs, err := s.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.snapshot(), nil
}

// SubmitUserTurn agrega el mensaje del usuario. Un texto vacio se ignora sin error.
// Mientras una llamada remota de la generacion actual esta en curso se rechaza con ErrTurnInFlight.
func (s *ChatService) SubmitUserTurn(_ context.Context, sessionID, text string) (SubmitResult, error) {
	cs, err := s.session(sessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return SubmitResult{Accepted: false, Snapshot: cs.snapshot()}, nil
	}
	if cs.busy() {
		return SubmitResult{Snapshot: cs.snapshot()}, ErrTurnInFlight
	}

	cs.transcript, _ = cs.transcript.SubmitUserTurn(text)
	return SubmitResult{Accepted: true, Snapshot: cs.snapshot()}, nil
}

type flightOutcome struct {
	status ResolveStatus
	err    error
}

// ResolvePendingTurn pide la completion del turno pendiente. Si no hay turno
// pendiente no hace nada. Llamadas concurrentes sobre el mismo turno comparten
// una unica peticion remota.
func (s *ChatService) ResolvePendingTurn(ctx context.Context, sessionID string) (ResolveResult, error) {
	cs, err := s.session(sessionID)
	if err != nil {
		return ResolveResult{}, err
	}

	cs.mu.Lock()
	ticket, pending := cs.transcript.PendingTicket()
	if !pending {
		snap := cs.snapshot()
		cs.mu.Unlock()
		return ResolveResult{Status: ResolveIdle, Snapshot: snap}, nil
	}
	req := s.builder.Build(cs.persona, cs.transcript.Messages)
	cs.calls[ticket.Generation]++
	cs.mu.Unlock()

	key := fmt.Sprintf("%s/%d/%d", sessionID, ticket.Generation, ticket.Length)
	v, _, _ := s.flights.Do(key, func() (any, error) {
		return s.complete(ctx, cs, ticket, req), nil
	})
	out := v.(flightOutcome)

	cs.mu.Lock()
	cs.calls[ticket.Generation]--
	if cs.calls[ticket.Generation] <= 0 {
		delete(cs.calls, ticket.Generation)
	}
	snap := cs.snapshot()
	cs.mu.Unlock()

	if out.err != nil {
		return ResolveResult{Status: ResolveFailed, Notice: UserFacingNotice, Snapshot: snap}, out.err
	}
	return ResolveResult{Status: out.status, Snapshot: snap}, nil
}

func (s *ChatService) complete(ctx context.Context, cs *chatSession, ticket domain.Ticket, req llm.CompletionRequest) flightOutcome {
	// La llamada no se cancela si el cliente se desconecta; solo la acota el timeout.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.llmClient.Complete(callCtx, req)
	if err != nil {
		s.logger.Error("completion failed",
			zap.String("session_id", cs.info.ID),
			zap.String("persona", cs.persona.ID),
			zap.String("failure", llm.FailureClass(err)),
			zap.Int("messages", len(req.Messages)),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return flightOutcome{status: ResolveFailed, err: &RemoteCallError{SessionID: cs.info.ID, Err: err}}
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	next, applied := cs.transcript.ApplyCompletion(ticket, text)
	if !applied {
		s.logger.Info("stale completion discarded",
			zap.String("session_id", cs.info.ID),
			zap.Uint64("ticket_generation", ticket.Generation),
			zap.Uint64("current_generation", cs.transcript.Generation),
		)
		return flightOutcome{status: ResolveStale}
	}
	cs.transcript = next
	s.logger.Debug("completion applied",
		zap.String("session_id", cs.info.ID),
		zap.Int("messages", len(next.Messages)),
		zap.Duration("latency", time.Since(start)),
	)
	return flightOutcome{status: ResolveAnswered}
}

// Clear reinicia el historial al saludo sin confirmacion ni archivo.
func (s *ChatService) Clear(_ context.Context, sessionID string) (Snapshot, error) {
	cs, err := s.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.transcript = cs.transcript.Clear()
	return cs.snapshot(), nil
}

func (s *ChatService) EndSession(_ context.Context, sessionID string) error {
	if s == nil || s.registry == nil {
		return ErrChatServiceNotConfigured
	}
	if !s.registry.remove(strings.TrimSpace(sessionID)) {
		return ErrSessionNotFound
	}
	s.logger.Info("session ended", zap.String("session_id", sessionID))
	return nil
}

func (s *ChatService) session(sessionID string) (*chatSession, error) {
	if s == nil || s.registry == nil {
		return nil, ErrChatServiceNotConfigured
	}
	cs, ok := s.registry.get(strings.TrimSpace(sessionID))
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cs, nil
}
