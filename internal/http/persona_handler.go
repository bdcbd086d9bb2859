package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"al-kul/internal/domain"
	"al-kul/internal/repository"
)

// PersonaHandler expone el catalogo de personas sin su prompt de sistema.
type PersonaHandler struct {
	logger   *zap.Logger
	personas repository.PersonaRepository
}

func NewPersonaHandler(logger *zap.Logger, personas repository.PersonaRepository) *PersonaHandler {
	return &PersonaHandler{
		logger:   logger,
		personas: personas,
	}
}

// ListPersonas maneja GET /personas.
func (h *PersonaHandler) ListPersonas(c *gin.Context) {
	personas, err := h.personas.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list personas failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list personas"})
		return
	}
	if personas == nil {
		personas = []domain.Persona{}
	}
	c.JSON(http.StatusOK, gin.H{
		"personas":   personas,
		"disclaimer": domain.Disclaimer,
	})
}
