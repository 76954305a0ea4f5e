package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type scriptedResponse struct {
	out string
	err error
}

// scriptedCaller plays back queued responses per model and records the call
// order, so each state machine transition can be asserted independently.
type scriptedCaller struct {
	mu    sync.Mutex
	queue map[string][]scriptedResponse
	calls []string
}

func newScriptedCaller() *scriptedCaller {
	return &scriptedCaller{queue: make(map[string][]scriptedResponse)}
}

func (s *scriptedCaller) enqueue(model, out string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue[model] = append(s.queue[model], scriptedResponse{out: out, err: err})
}

func (s *scriptedCaller) call(_ context.Context, model string, _ []*genai.Content) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, model)
	responses := s.queue[model]
	if len(responses) == 0 {
		return "", errors.New("unexpected call")
	}
	res := responses[0]
	s.queue[model] = responses[1:]
	return res.out, res.err
}

func captureWaits(t *testing.T) *[]time.Duration {
	t.Helper()

	var waits []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { wait = original })

	return &waits
}

func quotaError() error {
	return genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}
}

func badRequestError() error {
	return genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "bad model"}
}

func testAnalyst(caller contentCaller, models []string, maxAttempts int) *Analyst {
	return newAnalyst(caller, &Config{
		Models:      models,
		MaxAttempts: maxAttempts,
		BaseDelay:   3 * time.Second,
	}, zap.NewNop())
}

func TestAnalyzeRetriesSameModelOnQuotaError(t *testing.T) {
	waits := captureWaits(t)

	caller := newScriptedCaller()
	caller.enqueue("model-a", "", quotaError())
	caller.enqueue("model-a", `{"score": 75, "reason": "Buena oportunidad"}`, nil)

	a := testAnalyst(caller, []string{"model-a", "model-b"}, 5)

	analysis := a.Analyze(context.Background(), &ai.Request{Title: "Compra"})

	if analysis.Score != 75 || analysis.Reason != "Buena oportunidad" {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if len(caller.calls) != 2 || caller.calls[0] != "model-a" || caller.calls[1] != "model-a" {
		t.Fatalf("expected two calls on model-a, got %v", caller.calls)
	}
	if len(*waits) != 1 || (*waits)[0] != 3*time.Second {
		t.Fatalf("expected a single 3s backoff, got %v", *waits)
	}
}

func TestAnalyzeBackoffGrowsWithAttemptNumber(t *testing.T) {
	waits := captureWaits(t)

	caller := newScriptedCaller()
	for range 3 {
		caller.enqueue("model-a", "", quotaError())
	}
	caller.enqueue("model-b", `{"score": 50, "reason": "ok"}`, nil)

	a := testAnalyst(caller, []string{"model-a", "model-b"}, 3)

	analysis := a.Analyze(context.Background(), &ai.Request{Title: "Compra"})

	if analysis.Score != 50 {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}

	// Attempts on model-a never exceed the configured maximum.
	attemptsOnA := 0
	for _, model := range caller.calls {
		if model == "model-a" {
			attemptsOnA++
		}
	}
	if attemptsOnA != 3 {
		t.Fatalf("expected 3 attempts on model-a, got %d (%v)", attemptsOnA, caller.calls)
	}

	want := []time.Duration{3 * time.Second, 6 * time.Second, 9 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), *waits)
	}
	for i, d := range want {
		if (*waits)[i] != d {
			t.Fatalf("wait %d: expected %v, got %v", i, d, (*waits)[i])
		}
	}
}

func TestAnalyzeAdvancesModelOnNonQuotaError(t *testing.T) {
	waits := captureWaits(t)

	caller := newScriptedCaller()
	caller.enqueue("model-a", "", badRequestError())
	caller.enqueue("model-b", `{"score": 64, "reason": "ok"}`, nil)

	a := testAnalyst(caller, []string{"model-a", "model-b"}, 5)

	analysis := a.Analyze(context.Background(), &ai.Request{Title: "Compra"})

	if analysis.Score != 64 {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if len(caller.calls) != 2 || caller.calls[0] != "model-a" || caller.calls[1] != "model-b" {
		t.Fatalf("expected immediate fallback to model-b, got %v", caller.calls)
	}
	if len(*waits) != 0 {
		t.Fatalf("non-quota errors must not back off, got %v", *waits)
	}
}

func TestAnalyzeUnparseableResponseFallsBack(t *testing.T) {
	captureWaits(t)

	caller := newScriptedCaller()
	caller.enqueue("model-a", "I am not JSON at all", nil)
	caller.enqueue("model-b", `{"score": 42, "reason": "ok"}`, nil)

	a := testAnalyst(caller, []string{"model-a", "model-b"}, 5)

	analysis := a.Analyze(context.Background(), &ai.Request{Title: "Compra"})

	if analysis.Score != 42 {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if len(caller.calls) != 2 {
		t.Fatalf("expected fallback call, got %v", caller.calls)
	}
}

func TestAnalyzeExhaustionReturnsDegradedResult(t *testing.T) {
	captureWaits(t)

	caller := newScriptedCaller()
	for range 2 {
		caller.enqueue("model-a", "", quotaError())
	}
	caller.enqueue("model-b", "", badRequestError())

	a := testAnalyst(caller, []string{"model-a", "model-b"}, 2)

	analysis := a.Analyze(context.Background(), &ai.Request{Title: "Compra"})

	if analysis == nil {
		t.Fatal("analysis must never be nil")
	}
	if analysis.Score != 0 {
		t.Fatalf("expected degraded zero score, got %d", analysis.Score)
	}
	if analysis.Reason != busyReason {
		t.Fatalf("unexpected degraded reason: %q", analysis.Reason)
	}
}

func TestAnalyzeCanceledBackoffDegrades(t *testing.T) {
	original := wait
	wait = func(_ context.Context, _ time.Duration) error {
		return context.Canceled
	}
	t.Cleanup(func() { wait = original })

	caller := newScriptedCaller()
	caller.enqueue("model-a", "", quotaError())

	a := testAnalyst(caller, []string{"model-a"}, 5)

	analysis := a.Analyze(context.Background(), &ai.Request{Title: "Compra"})
	if analysis.Score != 0 || analysis.Reason != busyReason {
		t.Fatalf("expected degraded result on canceled backoff, got %+v", analysis)
	}
}

func TestParseAnalysisStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"score\": 88, \"reason\": \"[PDF] Buen calce técnico\"}\n```"

	analysis, err := parseAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Score != 88 {
		t.Fatalf("expected score 88, got %d", analysis.Score)
	}
	if !strings.HasPrefix(analysis.Reason, "[PDF] ") {
		t.Fatalf("expected document marker prefix, got %q", analysis.Reason)
	}
}

func TestParseAnalysisSubstitutesDefaults(t *testing.T) {
	analysis, err := parseAnalysis(`{"unrelated": true}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Score != 0 {
		t.Fatalf("expected default score 0, got %d", analysis.Score)
	}
	if analysis.Reason != defaultReason {
		t.Fatalf("expected default reason, got %q", analysis.Reason)
	}
}

func TestParseAnalysisCoercesStringScore(t *testing.T) {
	analysis, err := parseAnalysis(`{"score": "73", "reason": "ok"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Score != 73 {
		t.Fatalf("expected score 73, got %d", analysis.Score)
	}
}

func TestBuildPromptUsesCriteriaFallback(t *testing.T) {
	prompt := buildPrompt(&ai.Request{Title: "Compra", Description: "Equipos"})

	if !strings.Contains(prompt, "Perfil general de tecnología.") {
		t.Fatalf("expected generic profile fallback in prompt: %s", prompt)
	}
	if !strings.Contains(prompt, "Título: Compra") {
		t.Fatalf("expected title in prompt: %s", prompt)
	}
}

func TestBuildPromptTruncatesExtraText(t *testing.T) {
	long := strings.Repeat("a", maxExtraTextRunes+500)
	prompt := buildPrompt(&ai.Request{Title: "Compra", ExtraText: long})

	if strings.Contains(prompt, strings.Repeat("a", maxExtraTextRunes+1)) {
		t.Fatal("extra text was not truncated")
	}
	if !strings.Contains(prompt, "CONTEXTO ADICIONAL (TEXTO):") {
		t.Fatal("expected extra text block in prompt")
	}
}

func TestBuildPromptMarksAttachedDocument(t *testing.T) {
	prompt := buildPrompt(&ai.Request{Title: "Compra", Document: []byte("%PDF-1.4")})

	if !strings.Contains(prompt, "ADJUNTO PDF") {
		t.Fatalf("expected attachment instruction in prompt: %s", prompt)
	}
}

func TestBuildContentsAttachesDocumentWithMIMEType(t *testing.T) {
	contents := buildContents("prompt", &ai.Request{Document: []byte("%PDF-1.4")})

	if len(contents) != 1 {
		t.Fatalf("expected a single user turn, got %d", len(contents))
	}
	parts := contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected text and attachment parts, got %d", len(parts))
	}
	if parts[0].Text != "prompt" {
		t.Fatalf("unexpected prompt part: %q", parts[0].Text)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != defaultMIMEType {
		t.Fatalf("expected default %s attachment, got %+v", defaultMIMEType, parts[1].InlineData)
	}
}

func TestIsQuotaError(t *testing.T) {
	if !isQuotaError(quotaError()) {
		t.Fatal("429 api error must classify as quota")
	}
	if isQuotaError(badRequestError()) {
		t.Fatal("400 api error must not classify as quota")
	}
	if isQuotaError(nil) {
		t.Fatal("nil is not a quota error")
	}
	if !isQuotaError(errors.New("googleapi: ResourceExhausted")) {
		t.Fatal("ResourceExhausted message must classify as quota")
	}
}
