package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"al-kul/internal/domain"
)

var ErrPersonaNotFound = errors.New("persona not found")

type PersonaRepository interface {
	List(ctx context.Context) ([]domain.Persona, error)
	GetByID(ctx context.Context, id string) (domain.Persona, error)
}

// MemoryPersonaRepository sirve un catalogo fijo cargado al arrancar.
type MemoryPersonaRepository struct {
	mu       sync.RWMutex
	personas map[string]domain.Persona
	order    []string
}

func NewMemoryPersonaRepository(personas []domain.Persona) *MemoryPersonaRepository {
	r := &MemoryPersonaRepository{personas: make(map[string]domain.Persona, len(personas))}
	for _, p := range personas {
		if _, dup := r.personas[p.ID]; !dup {
			r.order = append(r.order, p.ID)
		}
		r.personas[p.ID] = p
	}
	return r
}

func (r *MemoryPersonaRepository) List(_ context.Context) ([]domain.Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.personas[id])
	}
	return out, nil
}

func (r *MemoryPersonaRepository) GetByID(_ context.Context, id string) (domain.Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personas[strings.TrimSpace(id)]
	if !ok {
		return domain.Persona{}, ErrPersonaNotFound
	}
	return p, nil
}

type PgPersonaRepository struct {
	pool *pgxpool.Pool
}

func NewPgPersonaRepository(pool *pgxpool.Pool) *PgPersonaRepository {
	return &PgPersonaRepository{pool: pool}
}

func (r *PgPersonaRepository) List(ctx context.Context) ([]domain.Persona, error) {
	const query = `
		SELECT id, name, title, greeting, system_prompt, model_id, temperature, max_output_tokens
		FROM personas
		WHERE enabled = TRUE
		ORDER BY position ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var personas []domain.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		personas = append(personas, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return personas, nil
}

func (r *PgPersonaRepository) GetByID(ctx context.Context, id string) (domain.Persona, error) {
	const query = `
		SELECT id, name, title, greeting, system_prompt, model_id, temperature, max_output_tokens
		FROM personas
		WHERE id = $1 AND enabled = TRUE
	`
	p, err := scanPersona(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Persona{}, ErrPersonaNotFound
	}
	return p, err
}

func scanPersona(row pgx.Row) (domain.Persona, error) {
	var p domain.Persona
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Title,
		&p.Greeting,
		&p.SystemPrompt,
		&p.Params.ModelID,
		&p.Params.Temperature,
		&p.Params.MaxOutputTokens,
	)
	return p, err
}

// LoadCatalog lee y valida todas las personas de src y devuelve un catalogo en memoria.
// Si src no trae ninguna, se usa fallback. modelOverride reemplaza el modelo de todas.
func LoadCatalog(ctx context.Context, src PersonaRepository, fallback []domain.Persona, modelOverride string) (*MemoryPersonaRepository, error) {
	personas, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	if len(personas) == 0 {
		personas = append([]domain.Persona(nil), fallback...)
	}
	modelOverride = strings.TrimSpace(modelOverride)
	for i := range personas {
		if modelOverride != "" {
			personas[i].Params.ModelID = modelOverride
		}
		if err := personas[i].Validate(); err != nil {
			return nil, err
		}
	}
	return NewMemoryPersonaRepository(personas), nil
}
