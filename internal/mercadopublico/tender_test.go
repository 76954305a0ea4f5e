package mercadopublico

import (
	"strings"
	"testing"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"
)

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	tenders := &Tenders{Items: []*Tender{
		{CodigoExterno: "A", FechaConsulta: "01012024"},
		{CodigoExterno: "B", FechaConsulta: "01012024"},
		{CodigoExterno: "A", FechaConsulta: "02012024"},
		{CodigoExterno: "C", FechaConsulta: "02012024"},
		{CodigoExterno: "B", FechaConsulta: "02012024"},
	}}

	removed := tenders.Dedupe()

	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if got := tenders.Codes(); len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("unexpected order after dedupe: %v", got)
	}
	if tenders.FindByCode("A").FechaConsulta != "01012024" {
		t.Fatal("expected the first occurrence of A to survive")
	}
}

func TestReferenceLinkQuotesCode(t *testing.T) {
	link := ReferenceLink("2097-13-L124")

	if !strings.HasPrefix(link, "https://www.google.com/search?q=site:mercadopublico.cl+") {
		t.Fatalf("unexpected link prefix: %q", link)
	}
	if !strings.Contains(link, "2097-13-L124") {
		t.Fatalf("link does not embed the code: %q", link)
	}
	// The code must be quoted so the search engine treats it as a phrase.
	if !strings.Contains(link, "%22") {
		t.Fatalf("link does not quote the code: %q", link)
	}
}

func TestReportByAgencyIncludesAnalysis(t *testing.T) {
	tenders := &Tenders{Items: []*Tender{
		{
			CodigoExterno: "A-1",
			Nombre:        "Compra Notebooks",
			Organismo:     "Ministerio de Salud",
			Estado:        "Publicada",
			AI:            &ai.Analysis{Score: 87, Reason: "Coincide con el perfil"},
		},
		{
			CodigoExterno: "B-2",
			Nombre:        "Obras Viales",
			Organismo:     "Ministerio de Salud",
			Estado:        "Cerrada",
		},
	}}

	report := tenders.ReportByAgency()

	entries, ok := report["Ministerio de Salud"]
	if !ok {
		t.Fatal("expected agency key in report")
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0]["ai_score"] != "87" {
		t.Fatalf("expected ai_score 87, got %q", entries[0]["ai_score"])
	}
	if entries[0]["ai_reason"] != "Coincide con el perfil" {
		t.Fatalf("unexpected ai_reason: %q", entries[0]["ai_reason"])
	}
	if _, ok := entries[1]["ai_score"]; ok {
		t.Fatal("did not expect ai_score for an unanalyzed tender")
	}
}
