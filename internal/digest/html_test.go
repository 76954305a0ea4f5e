package digest

import (
	"strings"
	"testing"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/mercadopublico"
)

func TestBuildHTMLColorCodesScores(t *testing.T) {
	tenders := []*mercadopublico.Tender{
		{Nombre: "Alta", AI: &ai.Analysis{Score: 85, Reason: "Buen calce"}},
		{Nombre: "Media", AI: &ai.Analysis{Score: 55, Reason: "Parcial"}},
		{Nombre: "Baja", AI: &ai.Analysis{Score: 12, Reason: "Fuera de perfil"}},
	}

	html, err := BuildHTML(tenders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"color: green", "color: orange", "color: red"} {
		if !strings.Contains(html, want) {
			t.Fatalf("missing %q in rendered digest:\n%s", want, html)
		}
	}
	for _, name := range []string{"Alta", "Media", "Baja"} {
		if !strings.Contains(html, "<b>"+name+"</b>") {
			t.Fatalf("missing tender name %q:\n%s", name, html)
		}
	}
}

func TestBuildHTMLEscapesContent(t *testing.T) {
	tenders := []*mercadopublico.Tender{
		{Nombre: "Compra <script>alert(1)</script>"},
	}

	html, err := BuildHTML(tenders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(html, "<script>") {
		t.Fatalf("name was not escaped:\n%s", html)
	}
}

func TestBuildHTMLUnanalyzedTenderIsRed(t *testing.T) {
	html, err := BuildHTML([]*mercadopublico.Tender{{Nombre: "Sin IA"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(html, "color: red") {
		t.Fatalf("unanalyzed tender must render red:\n%s", html)
	}
}

func TestScoreColorBoundaries(t *testing.T) {
	cases := map[int]string{100: "green", 70: "green", 69: "orange", 40: "orange", 39: "red", 0: "red"}
	for score, want := range cases {
		if got := scoreColor(score); got != want {
			t.Errorf("scoreColor(%d) = %q, want %q", score, got, want)
		}
	}
}
