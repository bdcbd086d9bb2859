package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"al-kul/internal/domain"
	"al-kul/internal/llm"
	"al-kul/internal/repository"
	"al-kul/internal/service"
)

func setupChatRouter(client llm.LLMClient) *gin.Engine {
	gin.SetMode(gin.TestMode)
	personas := repository.NewMemoryPersonaRepository(domain.SeedPersonas())
	chatSvc := service.NewChatService(zap.NewNop(), client, personas)
	tokens := service.NewSessionTokenService("secret", time.Hour, service.NewMemorySessionTokenStore())
	return NewRouter(
		zap.NewNop(),
		tokens,
		NewPersonaHandler(zap.NewNop(), personas),
		NewChatHandler(zap.NewNop(), chatSvc, tokens),
	)
}

func performRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type transcriptBody struct {
	Accepted   bool             `json:"accepted"`
	Status     string           `json:"status"`
	Notice     string           `json:"notice"`
	Error      string           `json:"error"`
	Token      string           `json:"session_token"`
	Transcript service.Snapshot `json:"transcript"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) transcriptBody {
	t.Helper()
	var out transcriptBody
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func createSession(t *testing.T, r http.Handler, personaID string) transcriptBody {
	t.Helper()
	var body any
	if personaID != "" {
		body = map[string]string{"persona_id": personaID}
	}
	rec := performRequest(r, http.MethodPost, "/sessions", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decodeBody(t, rec)
	if out.Token == "" {
		t.Fatalf("expected session token")
	}
	return out
}

func TestChatHandler_CreateSessionDefaultPersona(t *testing.T) {
	r := setupChatRouter(&llm.MockClient{})
	out := createSession(t, r, "")

	if out.Transcript.PersonaID != "companion" || len(out.Transcript.Display) != 1 {
		t.Fatalf("unexpected transcript: %+v", out.Transcript)
	}
	if out.Transcript.Display[0].Side != domain.SideLeft {
		t.Fatalf("expected greeting on the left, got %+v", out.Transcript.Display[0])
	}
}

func TestChatHandler_CreateSessionUnknownPersona(t *testing.T) {
	r := setupChatRouter(&llm.MockClient{})
	rec := performRequest(r, http.MethodPost, "/sessions", "", map[string]string{"persona_id": "unknown"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatHandler_FullTurn(t *testing.T) {
	r := setupChatRouter(&llm.MockClient{Response: "Take heart..."})
	token := createSession(t, r, "companion").Token

	rec := performRequest(r, http.MethodPost, "/session/messages", token, map[string]string{"content": "I feel anxious"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	sub := decodeBody(t, rec)
	if !sub.Accepted || sub.Transcript.State != domain.StateAwaitingResponse {
		t.Fatalf("unexpected submit response: %+v", sub)
	}

	rec = performRequest(r, http.MethodPost, "/session/resolve", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	res := decodeBody(t, rec)
	if res.Status != string(service.ResolveAnswered) || len(res.Transcript.Display) != 3 {
		t.Fatalf("unexpected resolve response: %+v", res)
	}
	if res.Transcript.Display[1].Side != domain.SideRight || res.Transcript.Display[2].Text != "Take heart..." {
		t.Fatalf("unexpected display: %+v", res.Transcript.Display)
	}

	rec = performRequest(r, http.MethodGet, "/session", token, nil)
	if rec.Code != http.StatusOK || len(decodeBody(t, rec).Transcript.Messages) != 3 {
		t.Fatalf("expected transcript of 3, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestChatHandler_BlankMessageIgnored(t *testing.T) {
	r := setupChatRouter(&llm.MockClient{})
	token := createSession(t, r, "").Token

	rec := performRequest(r, http.MethodPost, "/session/messages", token, map[string]string{"content": "   "})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := decodeBody(t, rec)
	if out.Accepted || len(out.Transcript.Messages) != 1 {
		t.Fatalf("blank message must be ignored: %+v", out)
	}
}

func TestChatHandler_ResolveFailureShowsGenericNotice(t *testing.T) {
	r := setupChatRouter(&llm.MockClient{Err: llm.ErrAuth})
	token := createSession(t, r, "").Token

	performRequest(r, http.MethodPost, "/session/messages", token, map[string]string{"content": "hello"})
	rec := performRequest(r, http.MethodPost, "/session/resolve", token, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	out := decodeBody(t, rec)
	if out.Notice != service.UserFacingNotice {
		t.Fatalf("expected generic notice, got %q", out.Notice)
	}
	if strings.Contains(rec.Body.String(), "authentication") || strings.Contains(rec.Body.String(), "llm") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
	if len(out.Transcript.Messages) != 2 || out.Transcript.State != domain.StateAwaitingResponse {
		t.Fatalf("pending turn not preserved: %+v", out.Transcript)
	}
}

func TestChatHandler_ClearAndEnd(t *testing.T) {
	r := setupChatRouter(&llm.MockClient{Response: "ok"})
	token := createSession(t, r, "reflective").Token

	performRequest(r, http.MethodPost, "/session/messages", token, map[string]string{"content": "hello"})
	performRequest(r, http.MethodPost, "/session/resolve", token, nil)

	rec := performRequest(r, http.MethodPost, "/session/clear", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := decodeBody(t, rec)
	if len(out.Transcript.Messages) != 1 || out.Transcript.Generation != 1 {
		t.Fatalf("expected reset transcript, got %+v", out.Transcript)
	}

	rec = performRequest(r, http.MethodDelete, "/session", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodGet, "/session", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", rec.Code)
	}
}

func TestChatHandler_ListPersonasHidesPrompts(t *testing.T) {
	r := setupChatRouter(&llm.MockClient{})
	rec := performRequest(r, http.MethodGet, "/personas", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"companion"`) || !strings.Contains(body, `"disclaimer"`) {
		t.Fatalf("unexpected body: %s", body)
	}
	if strings.Contains(body, "Always cite at least one") || strings.Contains(body, "llama3") {
		t.Fatalf("system prompt or model params leaked: %s", body)
	}
}
