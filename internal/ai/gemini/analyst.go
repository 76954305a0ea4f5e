package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/logger"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/utils"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 3 * time.Second

	// maxExtraTextRunes caps supplementary document text embedded into the
	// prompt so a long PDF does not blow the context window.
	maxExtraTextRunes = 10000

	defaultMIMEType = "application/pdf"

	defaultReason = "Sin razón clara"
	busyReason    = "⚠️ IA Ocupada (Tráfico Alto). Espera 1 min e intenta de nuevo."
)

// DefaultModels is the priority order tried by the analyst. The order encodes
// quality/availability tradeoffs, not cost.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-2.0-flash-lite"}

// wait is swapped in tests to assert backoff timing without sleeping.
var wait = utils.WaitFor

// Config tunes the retry/fallback behavior of the analyst.
type Config struct {
	Models      []string
	MaxAttempts int
	BaseDelay   time.Duration
}

// Analyst scores tenders against a buyer profile using a prioritized list of
// Gemini models. It always returns a well-formed analysis: throttling is
// retried with increasing delay, any other failure advances to the next
// model, and full exhaustion yields a degraded zero-score result.
type Analyst struct {
	caller      contentCaller
	models      []string
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

// NewAnalyst builds an analyst backed by the live Gemini API.
func NewAnalyst(ctx context.Context, apiKey string, cfg *Config, log *zap.Logger) (*Analyst, error) {
	generator, err := NewGenerator(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	return newAnalyst(generator, cfg, log), nil
}

func newAnalyst(caller contentCaller, cfg *Config, log *zap.Logger) *Analyst {
	a := &Analyst{
		caller:      caller,
		models:      DefaultModels,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      logger.WithFields(log, logger.CommonFields("gemini", "")...),
	}

	if cfg != nil {
		if len(cfg.Models) > 0 {
			a.models = cfg.Models
		}
		if cfg.MaxAttempts > 0 {
			a.maxAttempts = cfg.MaxAttempts
		}
		if cfg.BaseDelay > 0 {
			a.baseDelay = cfg.BaseDelay
		}
	}

	return a
}

type callState int

const (
	stateSelectModel callState = iota
	stateCall
	stateWait
	stateDone
	stateExhausted
)

// Analyze runs the retry/fallback state machine over the configured models.
// The contract guarantees a non-nil analysis on every call; no backend
// failure escapes to the caller.
func (a *Analyst) Analyze(ctx context.Context, req *ai.Request) *ai.Analysis {
	prompt := buildPrompt(req)
	contents := buildContents(prompt, req)

	state := stateSelectModel
	modelIdx := -1
	attempt := 0
	var result *ai.Analysis

	for {
		switch state {
		case stateSelectModel:
			modelIdx++
			attempt = 0
			if modelIdx >= len(a.models) {
				state = stateExhausted
				continue
			}
			state = stateCall

		case stateCall:
			attempt++
			model := a.models[modelIdx]

			raw, err := a.caller.call(ctx, model, contents)
			if err == nil {
				analysis, perr := parseAnalysis(raw)
				if perr != nil {
					a.logger.Warn("unparseable model response, falling back",
						zap.String(logger.FieldModel, model),
						zap.String("response_preview", logger.TruncateForLog(raw, 200)),
						zap.Error(perr),
					)
					state = stateSelectModel
					continue
				}
				result = analysis
				state = stateDone
				continue
			}

			if isQuotaError(err) {
				state = stateWait
				continue
			}

			a.logger.Warn("model failed with non-quota error, falling back",
				zap.String(logger.FieldModel, model),
				zap.Error(err),
			)
			state = stateSelectModel

		case stateWait:
			delay := a.baseDelay * time.Duration(attempt)
			a.logger.Warn("quota hit, backing off",
				zap.String(logger.FieldModel, a.models[modelIdx]),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", a.maxAttempts),
			)

			if err := wait(ctx, delay); err != nil {
				a.logger.Warn("backoff interrupted", zap.Error(err))
				state = stateExhausted
				continue
			}

			if attempt >= a.maxAttempts {
				state = stateSelectModel
				continue
			}
			state = stateCall

		case stateDone:
			return result

		case stateExhausted:
			a.logger.Error("all models exhausted, returning degraded analysis")
			return &ai.Analysis{Score: 0, Reason: busyReason}
		}
	}
}

// buildPrompt assembles the Spanish analyst prompt. The backend must answer
// with exactly one JSON object carrying an integer score and a Spanish
// reason, "[PDF] "-prefixed when the attached document was used.
func buildPrompt(req *ai.Request) string {
	criteria := "Perfil general de tecnología."
	if strings.TrimSpace(req.Criteria) != "" {
		criteria = "Criterios/Perfil de la Empresa: " + req.Criteria
	}

	var docBlock strings.Builder
	if extra := strings.TrimSpace(req.ExtraText); extra != "" {
		if runes := []rune(extra); len(runes) > maxExtraTextRunes {
			extra = string(runes[:maxExtraTextRunes])
		}
		docBlock.WriteString("CONTEXTO ADICIONAL (TEXTO): " + extra + "\n")
	}
	if len(req.Document) > 0 {
		docBlock.WriteString("\n[ADJUNTO PDF: Analiza VISUALMENTE este documento escaneado para extraer requisitos técnicos, fechas y detalles.]")
	}

	return fmt.Sprintf(`ROL: Eres un experto analista de licitaciones públicas en CHILE (Mercado Público).
IDIOMA: Tu idioma nativo es ESPAÑOL. NO hablas ni entiendes inglés para la salida.

TAREA:
%s
Evalúa la siguiente licitación y determina si es una buena oportunidad.
Si hay un documento adjunto (PDF/Imagen), LEELO VISUALMENTE y úsalo para mejorar tu análisis.

DATOS DE LA LICITACIÓN:
===
Título: %s
Descripción: %s
===

%s

FORMATO DE SALIDA (OBLIGATORIO):
Responde ÚNICAMENTE un objeto JSON válido.
Campo "reason": DEBE ser en ESPAÑOL. Si usaste el PDF, comienza con "[PDF] ".

{ "score": int, "reason": "str (Resumen en Español de 20 palabras)" }`,
		criteria, req.Title, req.Description, docBlock.String())
}

// buildContents packs the prompt and the optional binary attachment into a
// single user turn.
func buildContents(prompt string, req *ai.Request) []*genai.Content {
	parts := []*genai.Part{{Text: prompt}}

	if len(req.Document) > 0 {
		mimeType := strings.TrimSpace(req.DocumentMIME)
		if mimeType == "" {
			mimeType = defaultMIMEType
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     req.Document,
			},
		})
	}

	return []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: parts,
	}}
}

// parseAnalysis treats the model response as untrusted text: strip markdown
// fences, parse the JSON object, and substitute defaults for missing keys.
func parseAnalysis(raw string) (*ai.Analysis, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	analysis := &ai.Analysis{
		Score:  coerceScore(data["score"]),
		Reason: defaultReason,
	}

	if reason, ok := data["reason"].(string); ok && strings.TrimSpace(reason) != "" {
		analysis.Reason = strings.TrimSpace(reason)
	}

	return analysis, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceScore(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
