package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"al-kul/internal/config"
	"al-kul/internal/db"
	"al-kul/internal/domain"
	"al-kul/internal/llm"
	"al-kul/internal/repository"
	"al-kul/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// Los logs van a archivo para no mezclarse con la conversacion.
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"al-kul-cli.log"}
	logger, err := zapCfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	var personaSource repository.PersonaRepository = repository.NewMemoryPersonaRepository(domain.SeedPersonas())
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			log.Fatalf("db ping: %v", err)
		}
		personaSource = repository.NewPgPersonaRepository(pool)
	}
	personaRepo, err := repository.LoadCatalog(ctx, personaSource, domain.SeedPersonas(), cfg.PersonaModel)
	if err != nil {
		log.Fatalf("cargar personas: %v", err)
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout, logger)
	chatSvc := service.NewChatService(logger, llmClient, personaRepo,
		service.WithDefaultPersona(cfg.Persona),
		service.WithCallTimeout(cfg.LLMTimeout),
	)

	renderer := newTranscriptRenderer(terminalWidth(), true)

	personaID, err := choosePersona(ctx, reader, os.Stdout, personaRepo, cfg.Persona)
	if err != nil {
		log.Fatalf("elegir persona: %v", err)
	}

	snap, err := chatSvc.CreateSession(ctx, personaID)
	if err != nil {
		log.Fatalf("crear sesion: %v", err)
	}

	if err := chatLoop(ctx, reader, os.Stdout, chatSvc, renderer, snap); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("error en chat: %v", err)
	}
	_ = chatSvc.EndSession(ctx, snap.SessionID)
}

func choosePersona(ctx context.Context, reader *bufio.Reader, out io.Writer, repo repository.PersonaRepository, def string) (string, error) {
	personas, err := repo.List(ctx)
	if err != nil {
		return "", err
	}
	if len(personas) <= 1 {
		return def, nil
	}

	fmt.Fprintln(out, "Personas disponibles:")
	for i, p := range personas {
		marker := ""
		if p.ID == def {
			marker = " (default)"
		}
		fmt.Fprintf(out, "[%d] %s - %s%s\n", i+1, p.Name, p.Title, marker)
	}
	fmt.Fprintln(out, domain.Disclaimer)
	fmt.Fprint(out, "Selecciona una persona [Enter = default]: ")

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	idx, err := strconv.Atoi(line)
	if err != nil || idx < 1 || idx > len(personas) {
		fmt.Fprintln(out, "Seleccion invalida, se usa la persona por defecto.")
		return def, nil
	}
	return personas[idx-1].ID, nil
}

// chatLoop lee lineas hasta 'salir'. Comandos: /clear reinicia, /retry reintenta el turno pendiente.
func chatLoop(ctx context.Context, reader *bufio.Reader, out io.Writer, chat *service.ChatService, r *transcriptRenderer, snap service.Snapshot) error {
	fmt.Fprintln(out, r.Header("---- Modo Chat (escribe 'salir' para terminar, /clear para reiniciar, /retry para reintentar) ----"))
	fmt.Fprintln(out, r.Render(snap.Display))
	shown := len(snap.Display)

	for {
		fmt.Fprint(out, "Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(text) == "") {
			return err
		}
		text = strings.TrimSpace(text)

		switch {
		case text == "":
			continue
		case strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit"):
			fmt.Fprintln(out, "Saliendo del chat...")
			return nil
		case text == "/clear":
			cleared, err := chat.Clear(ctx, snap.SessionID)
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			fmt.Fprintln(out, r.Header("---- Conversacion reiniciada ----"))
			fmt.Fprintln(out, r.Render(cleared.Display))
			shown = len(cleared.Display)
			continue
		case text == "/retry":
		default:
			res, err := chat.SubmitUserTurn(ctx, snap.SessionID, text)
			if err != nil {
				if errors.Is(err, service.ErrTurnInFlight) {
					fmt.Fprintln(out, r.Notice(err.Error()))
					continue
				}
				return fmt.Errorf("submit: %w", err)
			}
			shown = printNew(out, r, res.Snapshot.Display, shown)
		}

		res, err := chat.ResolvePendingTurn(ctx, snap.SessionID)
		if err != nil {
			if errors.Is(err, service.ErrCompletionUnavailable) {
				fmt.Fprintln(out, r.Notice(res.Notice+" (/retry)"))
				continue
			}
			return fmt.Errorf("resolve: %w", err)
		}
		shown = printNew(out, r, res.Snapshot.Display, shown)
	}
}

// printNew imprime solo los registros que aun no se mostraron.
func printNew(out io.Writer, r *transcriptRenderer, display []domain.DisplayRecord, shown int) int {
	if shown > len(display) {
		shown = 0
	}
	if shown < len(display) {
		fmt.Fprintln(out, r.Render(display[shown:]))
	}
	return len(display)
}

func terminalWidth() int {
	if v, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && v > 0 {
		return v
	}
	return 80
}
