package gemini

import (
	"context"
	"math/rand"
	"strings"
	"unicode"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"
)

const (
	mockReason       = "Modo Prueba Aleatorio"
	noMatchReason    = "Sin coincidencias con Perfil (Offline mode)"
	matchReasonStart = "Coincidencia Perfil (Offline): "

	heuristicBase    = 30
	heuristicPerHit  = 15
	heuristicCeiling = 95
	heuristicFloor   = 10
	maxShownMatches  = 5
)

// Stop words ignored in profile analysis to avoid generic matches.
var heuristicStopWords = map[string]struct{}{
	"empresa": {}, "busca": {}, "somos": {}, "para": {}, "donde": {},
	"pero": {}, "fines": {}, "vendo": {}, "hago": {}, "tener": {},
}

// MockAnalyzer is the credential-less mode: a randomized score in [60,99]
// with a fixed test-mode reason. It never touches the network.
type MockAnalyzer struct{}

func (MockAnalyzer) Analyze(_ context.Context, _ *ai.Request) *ai.Analysis {
	return MockAnalysis()
}

func MockAnalysis() *ai.Analysis {
	return &ai.Analysis{
		Score:  60 + rand.Intn(40),
		Reason: mockReason,
	}
}

// HeuristicAnalyzer scores by keyword overlap between the profile text and
// the tender. It is an explicit alternate entry point for when no backend is
// reachable at all, never chosen automatically.
type HeuristicAnalyzer struct{}

func (HeuristicAnalyzer) Analyze(_ context.Context, req *ai.Request) *ai.Analysis {
	return HeuristicAnalysis(req.Title, req.Description, req.Criteria)
}

func HeuristicAnalysis(title, description, criteria string) *ai.Analysis {
	scan := strings.ToLower(title + " " + description)

	criteria = strings.ToLower(strings.TrimSpace(criteria))
	if criteria == "" {
		criteria = "tecnologia"
	}
	criteria = stripPunctuation(criteria)

	seen := make(map[string]struct{})
	var matches []string
	for _, word := range strings.Fields(criteria) {
		if len([]rune(word)) <= 3 {
			continue
		}
		if _, stop := heuristicStopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}

		if strings.Contains(scan, word) {
			matches = append(matches, word)
		}
	}

	if len(matches) == 0 {
		return &ai.Analysis{Score: heuristicFloor, Reason: noMatchReason}
	}

	score := heuristicBase + heuristicPerHit*len(matches)
	if score > heuristicCeiling {
		score = heuristicCeiling
	}

	shown := matches
	if len(shown) > maxShownMatches {
		shown = shown[:maxShownMatches]
	}

	return &ai.Analysis{
		Score:  score,
		Reason: matchReasonStart + strings.Join(shown, ", "),
	}
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
}
