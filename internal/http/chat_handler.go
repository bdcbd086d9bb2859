package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"al-kul/internal/repository"
	"al-kul/internal/service"
)

// ChatHandler mantiene dependencias para endpoints de sesiones y turnos.
type ChatHandler struct {
	logger *zap.Logger
	chat   *service.ChatService
	tokens *service.SessionTokenService
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chat *service.ChatService, tokens *service.SessionTokenService) *ChatHandler {
	return &ChatHandler{
		logger: logger,
		chat:   chat,
		tokens: tokens,
	}
}

// CreateSession maneja POST /sessions.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req struct {
		PersonaID string `json:"persona_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid create session request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	snap, err := h.chat.CreateSession(c.Request.Context(), req.PersonaID)
	if err != nil {
		if errors.Is(err, repository.ErrPersonaNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "persona not found"})
			return
		}
		h.logger.Error("create session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	token, err := h.tokens.Issue(snap.SessionID, snap.PersonaID)
	if err != nil {
		h.logger.Error("session token issue failed", zap.Error(err))
		_ = h.chat.EndSession(c.Request.Context(), snap.SessionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_token": token,
		"expires_in":    int64(h.tokens.TTL().Seconds()),
		"transcript":    snap,
	})
}

// GetTranscript maneja GET /session.
func (h *ChatHandler) GetTranscript(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}
	snap, err := h.chat.Snapshot(c.Request.Context(), claims.SessionID)
	if err != nil {
		h.respondSessionError(c, err, "could not load transcript")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": snap})
}

// PostMessage maneja POST /session/messages. Un mensaje vacio se ignora.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.chat.SubmitUserTurn(c.Request.Context(), claims.SessionID, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrTurnInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": "response in progress", "transcript": res.Snapshot})
			return
		}
		h.respondSessionError(c, err, "could not post message")
		return
	}

	status := http.StatusAccepted
	if !res.Accepted {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// ResolveTurn maneja POST /session/resolve.
func (h *ChatHandler) ResolveTurn(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}

	res, err := h.chat.ResolvePendingTurn(c.Request.Context(), claims.SessionID)
	if err != nil {
		if errors.Is(err, service.ErrCompletionUnavailable) {
			// El detalle ya quedo en el log del servicio; al usuario solo el aviso generico.
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":      "could not generate response",
				"notice":     res.Notice,
				"transcript": res.Snapshot,
			})
			return
		}
		h.respondSessionError(c, err, "could not generate response")
		return
	}
	c.JSON(http.StatusOK, res)
}

// ClearTranscript maneja POST /session/clear.
func (h *ChatHandler) ClearTranscript(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}
	snap, err := h.chat.Clear(c.Request.Context(), claims.SessionID)
	if err != nil {
		h.respondSessionError(c, err, "could not clear transcript")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": snap})
}

// EndSession maneja DELETE /session.
func (h *ChatHandler) EndSession(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return
	}
	if err := h.tokens.Revoke(claims); err != nil {
		h.logger.Warn("session token revoke failed", zap.Error(err))
	}
	if err := h.chat.EndSession(c.Request.Context(), claims.SessionID); err != nil && !errors.Is(err, service.ErrSessionNotFound) {
		h.logger.Error("end session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not end session"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) respondSessionError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
