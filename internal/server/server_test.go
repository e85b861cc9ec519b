package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/json2x/chatapp-v2-api/internal/history"
	"github.com/json2x/chatapp-v2-api/internal/llm"
	"github.com/json2x/chatapp-v2-api/internal/store"
	"github.com/json2x/chatapp-v2-api/internal/summary"
	"github.com/json2x/chatapp-v2-api/internal/turn"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type scriptedProvider struct {
	chunks []string
	err    error
}

func (p *scriptedProvider) StreamChat(ctx context.Context, model string, messages []llm.Message, opts llm.Options) (llm.Stream, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &scriptedStream{chunks: p.chunks}, nil
}

type scriptedStream struct {
	chunks []string
	pos    int
}

func (s *scriptedStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *scriptedStream) Close() error { return nil }

func newTestRouter(t *testing.T, chunks []string) (*gin.Engine, store.Store) {
	t.Helper()

	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	llmService := llm.NewService()
	llmService.Register(llm.ProviderOpenAI, &scriptedProvider{chunks: chunks})

	summarizer := summary.New(llmService, "gpt-4o-mini", 500, 0.3)
	assembler := &history.Assembler{Store: st, Summarizer: summarizer, Threshold: 20}
	orchestrator := &turn.Orchestrator{Store: st, Backend: llmService, History: assembler}

	srv := New(st, llmService, orchestrator)
	return srv.Router("http://localhost:3000"), st
}

// closeNotifyRecorder adds the http.CloseNotifier method that gin's
// Context.Stream requires but httptest.ResponseRecorder lacks.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return make(chan bool) }

func doJSON(t *testing.T, router *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(&closeNotifyRecorder{w}, req)
	return w
}

func sseEvents(t *testing.T, body string) []turn.Event {
	t.Helper()
	var events []turn.Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev turn.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("unmarshal event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestWelcome(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Welcome") {
		t.Errorf("body = %q, want welcome message", w.Body.String())
	}
}

func TestChat_StreamsAndPersists(t *testing.T) {
	router, st := newTestRouter(t, []string{"Hello", ", ", "world!"})

	w := doJSON(t, router, http.MethodPost, "/api/chat", `{"model":"gpt-4o-mini","message":"Say hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	events := sseEvents(t, w.Body.String())
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	var text strings.Builder
	for _, ev := range events[:3] {
		text.WriteString(ev.Content)
	}
	if text.String() != "Hello, world!" {
		t.Errorf("streamed text = %q, want %q", text.String(), "Hello, world!")
	}
	final := events[3]
	if !final.Done || final.Error != "" || final.ConversationID == "" {
		t.Fatalf("final event = %+v, want done with conversation id", final)
	}

	conv, err := st.GetConversation(context.Background(), final.ConversationID, true)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(conv.Messages))
	}
	if conv.Messages[1].Content != "Hello, world!" {
		t.Errorf("assistant content = %q", conv.Messages[1].Content)
	}
	if conv.Title != "Say hello" {
		t.Errorf("title = %q, want %q", conv.Title, "Say hello")
	}
}

func TestChat_UnsupportedModel(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/chat", `{"model":"mystery-9000","message":"hi"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestChat_ProviderNotInitialized(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/chat", `{"model":"claude-3-opus-20240229","message":"hi"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestChat_UnknownConversation(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/chat", `{"model":"gpt-4o-mini","message":"hi","conversation_session_id":"nope"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestChat_MissingFields(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/chat", `{"model":"gpt-4o-mini"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestModels(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/models", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var models map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &models); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := models["openai"]; !ok {
		t.Errorf("models = %v, want openai key", models)
	}
	if _, ok := models["anthropic"]; ok {
		t.Errorf("models = %v, anthropic should be absent", models)
	}
}

func TestProviderModels(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/models/openai", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/models/anthropic", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("uninitialized provider status = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/models/cohere", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown provider status = %d, want 400", w.Code)
	}
}

func TestDefaultModels(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/models-default", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var defaults map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &defaults); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if defaults["openai"] != "gpt-4o-mini" {
		t.Errorf("defaults = %v", defaults)
	}
}

func TestConversationEndpoints(t *testing.T) {
	router, st := newTestRouter(t, nil)

	id, err := st.CreateConversation(context.Background(), store.NewConversation{Title: "Support thread", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/api/conversations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	var convs []store.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &convs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != id {
		t.Fatalf("list = %+v, want the created conversation", convs)
	}

	w = doJSON(t, router, http.MethodGet, "/api/conversations/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/conversations/missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get missing status = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/conversations/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", w.Code)
	}
	want := fmt.Sprintf("Conversation %s deleted successfully", id)
	if !strings.Contains(w.Body.String(), want) {
		t.Errorf("delete body = %q, want %q", w.Body.String(), want)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/conversations/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", w.Code)
	}
}

func TestListConversations_BadParams(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/conversations?limit=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/conversations?offset=-1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad offset status = %d, want 400", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
