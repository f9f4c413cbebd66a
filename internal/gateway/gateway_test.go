package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/istorica/mentorai/internal/model"
)

type fakeRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type fakeProvider struct {
	srv   *httptest.Server
	calls atomic.Int64
	last  atomic.Pointer[fakeRequest]
}

// newFakeProvider starts an OpenAI-compatible completion endpoint that
// records requests and replies with the given content. A negative
// status makes it fail every call.
func newFakeProvider(t *testing.T, status int, content, reasoning string) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{}
	fp.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp.calls.Add(1)
		var req fakeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fp.last.Store(&req)

		if status != http.StatusOK {
			http.Error(w, `{"error": {"message": "boom"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role":              "assistant",
						"content":           content,
						"reasoning_content": reasoning,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(fp.srv.Close)
	return fp
}

func newTestGateway(deepseek, mistral *fakeProvider) *Gateway {
	cfg := Config{
		DeepSeekBaseURL: deepseek.srv.URL,
		DeepSeekAPIKey:  "test-ds-key",
		MistralBaseURL:  mistral.srv.URL,
		MistralAPIKey:   "test-mistral-key",
	}
	return New(cfg)
}

func TestAnswerStandard(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusOK, "Revoluția a început în 1789.", "")
	mistral := newFakeProvider(t, http.StatusOK, "unused", "")
	g := newTestGateway(deepseek, mistral)

	ans, err := g.Answer(context.Background(), "Când a început Revoluția Franceză?", ModeStandard, model.LangRO)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Provider != "deepseek" {
		t.Errorf("provider = %q, want deepseek", ans.Provider)
	}
	if ans.Model != "deepseek-chat" {
		t.Errorf("model = %q, want deepseek-chat", ans.Model)
	}
	if ans.Response != "Revoluția a început în 1789." {
		t.Errorf("unexpected response %q", ans.Response)
	}
	if ans.ThinkingProcess != "" {
		t.Errorf("thinking process should be empty in standard mode, got %q", ans.ThinkingProcess)
	}
	if n := mistral.calls.Load(); n != 0 {
		t.Errorf("mistral called %d times, want 0", n)
	}

	req := deepseek.last.Load()
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || !strings.Contains(req.Messages[0].Content, "Cronicus") {
		t.Errorf("unexpected system message %+v", req.Messages[0])
	}
	if req.Messages[1].Content != "Când a început Revoluția Franceză?" {
		t.Errorf("unexpected user message %q", req.Messages[1].Content)
	}
	if req.MaxTokens != 2000 {
		t.Errorf("max_tokens = %d, want 2000", req.MaxTokens)
	}
	if req.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", req.Temperature)
	}
}

func TestAnswerFailover(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusInternalServerError, "", "")
	mistral := newFakeProvider(t, http.StatusOK, "fallback answer", "")
	g := newTestGateway(deepseek, mistral)

	ans, err := g.Answer(context.Background(), "test question", ModeStandard, model.LangRO)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Provider != "mistral" {
		t.Errorf("provider = %q, want mistral", ans.Provider)
	}
	if ans.Model != "mistral-medium" {
		t.Errorf("model = %q, want mistral-medium", ans.Model)
	}
	if ans.Response != "fallback answer" {
		t.Errorf("unexpected response %q", ans.Response)
	}
	if n := mistral.calls.Load(); n != 1 {
		t.Errorf("mistral called %d times, want exactly 1", n)
	}

	// The fallback must receive the same question.
	req := mistral.last.Load()
	if req.Messages[1].Content != "test question" {
		t.Errorf("fallback got question %q, want %q", req.Messages[1].Content, "test question")
	}
	if req.MaxTokens != 1500 {
		t.Errorf("fallback max_tokens = %d, want 1500", req.MaxTokens)
	}
}

func TestAnswerBothFail(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusInternalServerError, "", "")
	mistral := newFakeProvider(t, http.StatusBadGateway, "", "")
	g := newTestGateway(deepseek, mistral)

	_, err := g.Answer(context.Background(), "test question", ModeStandard, model.LangRO)
	if err == nil {
		t.Fatal("expected error when both providers fail")
	}
	if !strings.Contains(err.Error(), "deepseek") || !strings.Contains(err.Error(), "mistral") {
		t.Errorf("error should name both providers, got: %v", err)
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("expected a wrapped ProviderError, got %T: %v", err, err)
	}
	if perr.Provider != "mistral" {
		t.Errorf("wrapped error should carry the final failure (mistral), got %q", perr.Provider)
	}
}

func TestAnswerBackupMode(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusOK, "should not be called", "")
	mistral := newFakeProvider(t, http.StatusOK, "direct mistral answer", "")
	g := newTestGateway(deepseek, mistral)

	ans, err := g.Answer(context.Background(), "test question", ModeBackup, model.LangRO)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Provider != "mistral" {
		t.Errorf("provider = %q, want mistral", ans.Provider)
	}
	if n := deepseek.calls.Load(); n != 0 {
		t.Errorf("deepseek called %d times in backup mode, want 0", n)
	}
}

func TestAnswerBackupModeNoFallback(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusOK, "unused", "")
	mistral := newFakeProvider(t, http.StatusInternalServerError, "", "")
	g := newTestGateway(deepseek, mistral)

	_, err := g.Answer(context.Background(), "test question", ModeBackup, model.LangRO)
	if err == nil {
		t.Fatal("expected error when the backup provider fails")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if n := deepseek.calls.Load(); n != 0 {
		t.Errorf("deepseek should never be tried in backup mode, called %d times", n)
	}
}

func TestAnswerThinkingMode(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusOK, "final answer", "step by step reasoning")
	mistral := newFakeProvider(t, http.StatusOK, "unused", "")
	g := newTestGateway(deepseek, mistral)

	ans, err := g.Answer(context.Background(), "test question", ModeThinking, model.LangRO)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Model != "deepseek-reasoner" {
		t.Errorf("model = %q, want deepseek-reasoner", ans.Model)
	}
	if ans.ThinkingProcess != "step by step reasoning" {
		t.Errorf("thinking process = %q, want the reasoning trace", ans.ThinkingProcess)
	}

	// The reasoner rejects a temperature parameter.
	req := deepseek.last.Load()
	if req.Temperature != 0 {
		t.Errorf("thinking mode sent temperature %v, want none", req.Temperature)
	}
}

func TestAnswerEmptyQuestion(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusOK, "unused", "")
	mistral := newFakeProvider(t, http.StatusOK, "unused", "")
	g := newTestGateway(deepseek, mistral)

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := g.Answer(context.Background(), q, ModeStandard, model.LangRO); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("Answer(%q) = %v, want ErrEmptyQuestion", q, err)
		}
	}
	if n := deepseek.calls.Load() + mistral.calls.Load(); n != 0 {
		t.Errorf("no provider should be called for an empty question, got %d calls", n)
	}
}

func TestAnswerUnknownModeDefaultsToStandard(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusOK, "answer", "")
	mistral := newFakeProvider(t, http.StatusOK, "unused", "")
	g := newTestGateway(deepseek, mistral)

	ans, err := g.Answer(context.Background(), "test question", Mode("experimental"), model.LangRO)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Provider != "deepseek" || ans.Model != "deepseek-chat" {
		t.Errorf("unknown mode routed to %s/%s, want deepseek/deepseek-chat", ans.Provider, ans.Model)
	}
}

func TestAnswerMissingKeyFailsOver(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusOK, "unused", "")
	mistral := newFakeProvider(t, http.StatusOK, "fallback answer", "")
	g := New(Config{
		DeepSeekBaseURL: deepseek.srv.URL,
		DeepSeekAPIKey:  "",
		MistralBaseURL:  mistral.srv.URL,
		MistralAPIKey:   "test-mistral-key",
	})

	ans, err := g.Answer(context.Background(), "test question", ModeStandard, model.LangRO)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Provider != "mistral" {
		t.Errorf("provider = %q, want mistral", ans.Provider)
	}
	if n := deepseek.calls.Load(); n != 0 {
		t.Errorf("deepseek called %d times without a key, want 0", n)
	}
}

func TestAnswerMissingKeyNoFallback(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusOK, "unused", "")
	mistral := newFakeProvider(t, http.StatusOK, "unused", "")
	g := New(Config{
		DeepSeekBaseURL: deepseek.srv.URL,
		DeepSeekAPIKey:  "test-ds-key",
		MistralBaseURL:  mistral.srv.URL,
		MistralAPIKey:   "",
	})

	_, err := g.Answer(context.Background(), "test question", ModeBackup, model.LangRO)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
	if cerr.Provider != "mistral" {
		t.Errorf("ConfigError.Provider = %q, want mistral", cerr.Provider)
	}
}

func TestRussianSystemPrompt(t *testing.T) {
	deepseek := newFakeProvider(t, http.StatusOK, "ответ", "")
	mistral := newFakeProvider(t, http.StatusOK, "unused", "")
	g := newTestGateway(deepseek, mistral)

	if _, err := g.Answer(context.Background(), "Когда началась революция?", ModeStandard, model.LangRU); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	req := deepseek.last.Load()
	if !strings.Contains(req.Messages[0].Content, "наставник") {
		t.Errorf("expected Russian system prompt, got %q", req.Messages[0].Content)
	}
}
