package summarizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deskbot-io/deskbot/internal/provider"
)

type fakeGenerator struct {
	// responses[model] is consumed call by call; an entry starting with
	// "err:" yields that error, "ratelimit" yields a RateLimitError.
	responses map[string][]string
	calls     []string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	f.calls = append(f.calls, model)
	queue := f.responses[model]
	if len(queue) == 0 {
		return "", fmt.Errorf("fake: no response for %s", model)
	}
	next := queue[0]
	f.responses[model] = queue[1:]
	switch {
	case next == "ratelimit":
		return "", &provider.RateLimitError{Model: model, Detail: "quota"}
	case strings.HasPrefix(next, "err:"):
		return "", fmt.Errorf("%s", strings.TrimPrefix(next, "err:"))
	default:
		return next, nil
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noSleep(s *Summarizer) {
	s.sleep = func(ctx context.Context, d time.Duration) error { return nil }
}

func TestSummarizeParsesMarkers(t *testing.T) {
	response := "🚩 OCORRÊNCIA\nModem sem sinal.\n\n[NOVO_TITULO: Falha de modem]\n🏁 SITUAÇÃO ATUAL\nResolvido.\n[FECHAR_CHAMADO]"
	gen := &fakeGenerator{responses: map[string][]string{"m1": {response}}}
	s := New(gen, []string{"m1"}, discard())
	noSleep(s)

	res := s.Summarize(context.Background(), Request{
		Log:          []string{"Alice: modem down", "Bot: rebooted modem"},
		CurrentDesc:  "internet ruim",
		FirstSession: true,
	})

	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Diagnostic)
	}
	if res.TitleSuggestion != "Falha de modem" {
		t.Errorf("TitleSuggestion = %q", res.TitleSuggestion)
	}
	if !res.ShouldClose {
		t.Error("ShouldClose = false, want true")
	}
	if len(res.Actions) != 2 {
		t.Fatalf("Actions = %v, want 2 entries", res.Actions)
	}
	if strings.Contains(res.Report, "[NOVO_TITULO") || strings.Contains(res.Report, "[FECHAR_CHAMADO]") {
		t.Errorf("markers not stripped from report: %q", res.Report)
	}
	if !strings.Contains(res.Report, "Modem sem sinal") {
		t.Errorf("report lost body text: %q", res.Report)
	}
}

func TestSummarizeNoMarkers(t *testing.T) {
	gen := &fakeGenerator{responses: map[string][]string{"m1": {"🚩 OCORRÊNCIA\nRelato simples."}}}
	s := New(gen, []string{"m1"}, discard())
	noSleep(s)

	res := s.Summarize(context.Background(), Request{Log: []string{"Alice: oi"}})
	if res.Failed || res.ShouldClose || res.TitleSuggestion != "" || len(res.Actions) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestTitleInstructionOnlyOnFirstSession(t *testing.T) {
	gen := &fakeGenerator{responses: map[string][]string{"m1": {"ok", "ok"}}}
	s := New(gen, []string{"m1"}, discard())
	noSleep(s)

	first := s.buildPrompt(context.Background(), Request{Log: []string{"x"}, CurrentDesc: "desc atual", FirstSession: true})
	if !strings.Contains(first, "NOVO_TITULO") || !strings.Contains(first, "desc atual") {
		t.Errorf("first-session prompt missing title instruction: %q", first)
	}

	later := s.buildPrompt(context.Background(), Request{Log: []string{"x"}, CurrentDesc: "desc atual", FirstSession: false})
	if strings.Contains(later, "NOVO_TITULO") {
		t.Error("follow-up session prompt should not carry the title instruction")
	}
	if !strings.Contains(later, "NÃO COPIAR") {
		t.Error("prompt missing log guard")
	}
}

func TestRateLimitRetriesSameModel(t *testing.T) {
	gen := &fakeGenerator{responses: map[string][]string{
		"m1": {"ratelimit", "ratelimit", "relatório"},
	}}
	s := New(gen, []string{"m1", "m2"}, discard())
	noSleep(s)

	res := s.Summarize(context.Background(), Request{Log: []string{"x"}})
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Diagnostic)
	}
	if len(gen.calls) != 3 {
		t.Errorf("calls = %v, want three attempts on m1", gen.calls)
	}
}

func TestRateLimitExhaustionSkipsFinalSleep(t *testing.T) {
	gen := &fakeGenerator{responses: map[string][]string{
		"m1": {"ratelimit", "ratelimit", "ratelimit"},
		"m2": {"relatório"},
	}}
	s := New(gen, []string{"m1", "m2"}, discard())
	var sleeps int
	s.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}

	res := s.Summarize(context.Background(), Request{Log: []string{"x"}})
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Diagnostic)
	}
	if len(gen.calls) != 4 {
		t.Errorf("calls = %v, want three on m1 then one on m2", gen.calls)
	}
	if sleeps != 2 {
		t.Errorf("sleeps = %d, want 2: no delay before switching models", sleeps)
	}
}

func TestNonRateLimitAdvancesModel(t *testing.T) {
	gen := &fakeGenerator{responses: map[string][]string{
		"m1": {"err:model not found"},
		"m2": {"relatório"},
	}}
	s := New(gen, []string{"m1", "m2"}, discard())
	noSleep(s)

	res := s.Summarize(context.Background(), Request{Log: []string{"x"}})
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Diagnostic)
	}
	if len(gen.calls) != 2 || gen.calls[0] != "m1" || gen.calls[1] != "m2" {
		t.Errorf("calls = %v, want [m1 m2]", gen.calls)
	}
}

func TestAllModelsFailYieldsDiagnostic(t *testing.T) {
	gen := &fakeGenerator{responses: map[string][]string{
		"m1": {"err:boom1"},
		"m2": {"err:boom2"},
		"m3": {"err:boom3"},
	}}
	s := New(gen, []string{"m1", "m2", "m3"}, discard())
	noSleep(s)

	res := s.Summarize(context.Background(), Request{Log: []string{"x"}})
	if !res.Failed {
		t.Fatal("expected Failed result")
	}
	if !strings.Contains(res.Diagnostic, "IA indisponível") || !strings.Contains(res.Diagnostic, "boom3") {
		t.Errorf("Diagnostic = %q", res.Diagnostic)
	}
	if res.Report != "" || len(res.Actions) != 0 {
		t.Errorf("failed result should be empty, got %+v", res)
	}
}

func TestLinkEnricherContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "status page: all links down")
	}))
	defer srv.Close()

	e := NewLinkEnricher(discard())
	got := e.Context(context.Background(), []string{
		"Alice: veja " + srv.URL + "/status",
		"Alice: de novo " + srv.URL + "/status",
	})
	if !strings.Contains(got, "all links down") {
		t.Errorf("Context = %q", got)
	}
	if strings.Count(got, "all links down") != 1 {
		t.Errorf("duplicate URL fetched twice: %q", got)
	}
}

func TestLinkEnricherSkipsFailures(t *testing.T) {
	e := NewLinkEnricher(discard())
	e.http = &http.Client{Timeout: 100 * time.Millisecond}
	got := e.Context(context.Background(), []string{"Alice: http://127.0.0.1:1/down"})
	if got != "" {
		t.Errorf("Context = %q, want empty", got)
	}
}
