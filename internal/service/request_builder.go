package service

import (
	"al-kul/internal/domain"
	"al-kul/internal/llm"
)

// CompletionRequestBuilder arma la peticion al servicio de completions:
// una entrada system con el prompt de la persona seguida del historial completo.
type CompletionRequestBuilder struct{}

// Build no recorta ni resume el historial; cada turno reenvia todo.
func (CompletionRequestBuilder) Build(persona domain.Persona, messages []domain.Message) llm.CompletionRequest {
	out := make([]llm.ChatMessage, 0, len(messages)+1)
	out = append(out, llm.ChatMessage{Role: string(domain.RoleSystem), Content: persona.SystemPrompt})
	for _, m := range messages {
		out = append(out, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return llm.CompletionRequest{
		Model:       persona.Params.ModelID,
		Messages:    out,
		Temperature: persona.Params.Temperature,
		MaxTokens:   persona.Params.MaxOutputTokens,
	}
}
