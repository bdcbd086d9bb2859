package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrPersonaInvalid = errors.New("persona invalid")

type ModelParams struct {
	ModelID         string  `json:"model_id"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// Persona es la configuracion fija que selecciona una variante de tono.
// SystemPrompt nunca se guarda en el historial visible.
type Persona struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Title        string      `json:"title"`
	Greeting     string      `json:"greeting"`
	SystemPrompt string      `json:"-"`
	Params       ModelParams `json:"-"`
}

func (p Persona) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: empty id", ErrPersonaInvalid)
	case strings.TrimSpace(p.Greeting) == "":
		return fmt.Errorf("%w: %s: empty greeting", ErrPersonaInvalid, p.ID)
	case strings.TrimSpace(p.SystemPrompt) == "":
		return fmt.Errorf("%w: %s: empty system prompt", ErrPersonaInvalid, p.ID)
	case strings.TrimSpace(p.Params.ModelID) == "":
		return fmt.Errorf("%w: %s: empty model id", ErrPersonaInvalid, p.ID)
	case p.Params.Temperature < 0 || p.Params.Temperature > 1:
		return fmt.Errorf("%w: %s: temperature %.2f out of [0,1]", ErrPersonaInvalid, p.ID, p.Params.Temperature)
	case p.Params.MaxOutputTokens <= 0:
		return fmt.Errorf("%w: %s: max output tokens must be positive", ErrPersonaInvalid, p.ID)
	}
	return nil
}
