package gemini

import (
	"context"
	"strings"
	"testing"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"
)

func TestMockAnalysisScoreRange(t *testing.T) {
	for range 200 {
		analysis := MockAnalysis()
		if analysis.Score < 60 || analysis.Score > 99 {
			t.Fatalf("mock score out of range: %d", analysis.Score)
		}
		if analysis.Reason != mockReason {
			t.Fatalf("unexpected mock reason: %q", analysis.Reason)
		}
	}
}

func TestHeuristicAnalysisScoresOverlap(t *testing.T) {
	analysis := HeuristicAnalysis(
		"Compra de Notebooks y Licencias",
		"Adquisición de equipos y software",
		"Empresa de tecnología que vende notebooks y software",
	)

	// "notebooks" and "software" match; stop words and short words do not.
	if analysis.Score != heuristicBase+2*heuristicPerHit {
		t.Fatalf("unexpected heuristic score: %d", analysis.Score)
	}
	if !strings.Contains(analysis.Reason, "notebooks") {
		t.Fatalf("expected matched word in reason: %q", analysis.Reason)
	}
	if !strings.HasPrefix(analysis.Reason, matchReasonStart) {
		t.Fatalf("unexpected reason prefix: %q", analysis.Reason)
	}
}

func TestHeuristicAnalysisCapsScore(t *testing.T) {
	analysis := HeuristicAnalysis(
		"mantenimiento soporte redes servidores monitoreo respaldo seguridad",
		"",
		"mantenimiento soporte redes servidores monitoreo respaldo seguridad",
	)

	if analysis.Score != heuristicCeiling {
		t.Fatalf("expected capped score %d, got %d", heuristicCeiling, analysis.Score)
	}
}

func TestHeuristicAnalysisNoMatch(t *testing.T) {
	analysis := HeuristicAnalysis("Obras viales rurales", "Pavimentación", "notebooks")

	if analysis.Score != heuristicFloor {
		t.Fatalf("expected floor score %d, got %d", heuristicFloor, analysis.Score)
	}
	if analysis.Reason != noMatchReason {
		t.Fatalf("unexpected reason: %q", analysis.Reason)
	}
}

func TestHeuristicAnalysisEmptyCriteriaFallsBackToTechnology(t *testing.T) {
	analysis := HeuristicAnalysis("Servicios de tecnologia", "", "   ")

	if analysis.Score <= heuristicFloor {
		t.Fatalf("expected a match against the fallback profile, got %d", analysis.Score)
	}
	if !strings.Contains(analysis.Reason, "tecnologia") {
		t.Fatalf("expected fallback word in reason: %q", analysis.Reason)
	}
}

func TestHeuristicAnalyzerImplementsInterface(t *testing.T) {
	var a ai.Analyzer = HeuristicAnalyzer{}

	analysis := a.Analyze(context.Background(), &ai.Request{
		Title:    "Compra de Notebooks",
		Criteria: "notebooks",
	})
	if analysis == nil {
		t.Fatal("analysis must never be nil")
	}
}
