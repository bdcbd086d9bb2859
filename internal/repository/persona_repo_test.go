package repository

import (
	"context"
	"errors"
	"testing"

	"al-kul/internal/domain"
)

type stubPersonaSource struct {
	personas []domain.Persona
	err      error
}

func (s *stubPersonaSource) List(context.Context) ([]domain.Persona, error) {
	return s.personas, s.err
}

func (s *stubPersonaSource) GetByID(context.Context, string) (domain.Persona, error) {
	return domain.Persona{}, errors.New("not implemented")
}

func TestMemoryPersonaRepository_KeepsOrderAndLooksUp(t *testing.T) {
	repo := NewMemoryPersonaRepository(domain.SeedPersonas())

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 3 || list[0].ID != "companion" || list[2].ID != "reflective" {
		t.Fatalf("unexpected order: %+v", list)
	}

	p, err := repo.GetByID(context.Background(), " mentor ")
	if err != nil || p.ID != "mentor" {
		t.Fatalf("expected mentor, got %+v err=%v", p, err)
	}

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}

func TestLoadCatalog_FallbackWhenEmpty(t *testing.T) {
	catalog, err := LoadCatalog(context.Background(), &stubPersonaSource{}, domain.SeedPersonas(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	list, _ := catalog.List(context.Background())
	if len(list) != 3 {
		t.Fatalf("expected seeded personas, got %d", len(list))
	}
}

func TestLoadCatalog_RejectsInvalidPersona(t *testing.T) {
	bad := domain.SeedPersonas()[0]
	bad.Params.Temperature = 2

	_, err := LoadCatalog(context.Background(), &stubPersonaSource{personas: []domain.Persona{bad}}, nil, "")
	if !errors.Is(err, domain.ErrPersonaInvalid) {
		t.Fatalf("expected ErrPersonaInvalid, got %v", err)
	}
}

func TestLoadCatalog_SourceError(t *testing.T) {
	_, err := LoadCatalog(context.Background(), &stubPersonaSource{err: errors.New("db down")}, domain.SeedPersonas(), "")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadCatalog_ModelOverride(t *testing.T) {
	seed := domain.SeedPersonas()
	catalog, err := LoadCatalog(context.Background(), &stubPersonaSource{}, seed, " llama-3.3-70b-versatile ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	list, _ := catalog.List(context.Background())
	for _, p := range list {
		if p.Params.ModelID != "llama-3.3-70b-versatile" {
			t.Fatalf("expected override on %s, got %q", p.ID, p.Params.ModelID)
		}
	}
	if seed[0].Params.ModelID != domain.DefaultModelID {
		t.Fatalf("fallback slice must not be mutated")
	}
}
