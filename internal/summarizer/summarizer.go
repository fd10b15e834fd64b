// Package summarizer turns a closed session's chat log into a technical
// report and a set of ticket-update instructions.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/deskbot-io/deskbot/internal/provider"
	"github.com/deskbot-io/deskbot/internal/ticket"
)

const (
	attemptsPerModel = 3
	rateLimitDelay   = 2 * time.Second
)

var reTitleMarker = regexp.MustCompile(`\[NOVO_TITULO: (.*?)\]`)

const closeMarker = "[FECHAR_CHAMADO]"

// Request carries everything the pipeline needs to summarize one session.
type Request struct {
	Log          []string
	CurrentDesc  string
	FirstSession bool
}

// Result is the parsed outcome of a summarization run. When Failed is set
// the other fields are empty and Diagnostic explains what went wrong; the
// caller treats that as a normal result, not an error.
type Result struct {
	Report          string
	TitleSuggestion string
	ShouldClose     bool
	Actions         []string
	Failed          bool
	Diagnostic      string
}

// Summarizer runs the close-out pipeline against an ordered list of model
// candidates with bounded retries.
type Summarizer struct {
	gen      provider.Generator
	models   []string
	enricher *LinkEnricher
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithLinkEnricher enables link-context enrichment of the prompt.
func WithLinkEnricher(e *LinkEnricher) Option {
	return func(s *Summarizer) { s.enricher = e }
}

// New creates a Summarizer. Models are tried in order; the first success
// wins.
func New(gen provider.Generator, models []string, logger *slog.Logger, opts ...Option) *Summarizer {
	s := &Summarizer{
		gen:    gen,
		models: models,
		logger: logger,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize builds the prompt, calls the generative service with model
// fallback, and parses control markers out of the response.
func (s *Summarizer) Summarize(ctx context.Context, req Request) Result {
	prompt := s.buildPrompt(ctx, req)

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return Result{
			Failed:     true,
			Diagnostic: fmt.Sprintf("IA indisponível: %v", err),
		}
	}
	return parse(text)
}

func (s *Summarizer) buildPrompt(ctx context.Context, req Request) string {
	var b strings.Builder
	b.WriteString("Atue como Consultor Sênior ISP.\n")
	b.WriteString("Gere relatório técnico profissional.\n\n")
	b.WriteString("ESTILO:\n- Direto, listas (•), sem asteriscos (**), use CAIXA ALTA para títulos.\n\n")
	b.WriteString("FECHAMENTO:\n- Se resolvido, adicione [FECHAR_CHAMADO].\n")
	if req.FirstSession {
		fmt.Fprintf(&b, "TÍTULO:\n- Analise a descrição: '%s'. Se vaga, sugira título técnico curto (máx 50 caracteres). Tag: [NOVO_TITULO: Titulo].\n", req.CurrentDesc)
	}
	b.WriteString("\nESTRUTURA:\n")
	b.WriteString("🚩 OCORRÊNCIA\n[Resumo]\n\n")
	b.WriteString("🛠️ AÇÕES REALIZADAS\n• [Ação 1]\n\n")
	b.WriteString("🏁 SITUAÇÃO ATUAL\n[Status]\n\n")
	b.WriteString("--- LOG (NÃO COPIAR) ---\n")
	b.WriteString(strings.Join(req.Log, "\n"))

	if s.enricher != nil {
		if extra := s.enricher.Context(ctx, req.Log); extra != "" {
			b.WriteString("\n\n--- CONTEXTO DE LINKS ---\n")
			b.WriteString(extra)
		}
	}
	return b.String()
}

// generate walks the model candidates. A rate-limited call sleeps and
// retries the same model up to attemptsPerModel times; any other error
// moves on to the next model. Exhaustion returns the last error seen.
func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, model := range s.models {
		for attempt := 0; attempt < attemptsPerModel; attempt++ {
			text, err := s.gen.Generate(ctx, model, prompt)
			if err == nil {
				return text, nil
			}
			lastErr = err
			if !provider.IsRateLimit(err) {
				s.logger.Warn("model failed, trying next", "model", model, "error", err)
				break
			}
			if attempt == attemptsPerModel-1 {
				break
			}
			s.logger.Info("rate limited, retrying", "model", model, "attempt", attempt+1)
			if serr := s.sleep(ctx, rateLimitDelay); serr != nil {
				return "", serr
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("summarizer: no models configured")
	}
	return "", lastErr
}

// parse extracts the control markers and strips them from the report body.
func parse(text string) Result {
	var res Result

	if m := reTitleMarker.FindStringSubmatch(text); m != nil {
		title := ticket.Sanitize(m[1])
		res.TitleSuggestion = title
		res.Actions = append(res.Actions, fmt.Sprintf("🔄 Título ajustado: '%s'", title))
		text = strings.Replace(text, m[0], "", 1)
	}
	if strings.Contains(text, closeMarker) {
		res.ShouldClose = true
		res.Actions = append(res.Actions, "✨ Chamado encerrado (Resolvido).")
		text = strings.ReplaceAll(text, closeMarker, "")
	}

	res.Report = strings.TrimSpace(text)
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
