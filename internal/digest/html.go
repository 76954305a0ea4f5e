package digest

import (
	"html/template"
	"strings"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/mercadopublico"
)

const digestTemplate = `<html>
<body style="font-family: Arial, sans-serif;">
  <h2 style="color: #2E86C1;">📊 Reporte Diario de Licitaciones</h2>
  <p>Aquí tienes el resumen de las licitaciones más relevantes de hoy:</p>
  <table style="border-collapse: collapse; width: 100%;">
    <tr style="background-color: #f2f2f2;">
      <th style="padding: 10px; border: 1px solid #ddd;">Score</th>
      <th style="padding: 10px; border: 1px solid #ddd;">Nombre</th>
      <th style="padding: 10px; border: 1px solid #ddd;">Cierre</th>
      <th style="padding: 10px; border: 1px solid #ddd;">Link</th>
    </tr>
{{- range .Rows}}
    <tr>
      <td style="padding: 10px; border: 1px solid #ddd; color: {{.Color}}; font-weight: bold;">{{.Score}}</td>
      <td style="padding: 10px; border: 1px solid #ddd;">
        <b>{{.Name}}</b><br>
        <small>{{.Agency}}</small><br>
        <i>{{.Reason}}</i>
      </td>
      <td style="padding: 10px; border: 1px solid #ddd;">{{.ClosingDate}}</td>
      <td style="padding: 10px; border: 1px solid #ddd;"><a href="{{.Link}}">Ver Ficha</a></td>
    </tr>
{{- end}}
  </table>
  <p><i>Generado por Licitaciones Chile IA 🤖</i></p>
</body>
</html>
`

var digestTmpl = template.Must(template.New("digest").Parse(digestTemplate))

type digestRow struct {
	Score       int
	Color       string
	Name        string
	Agency      string
	Reason      string
	ClosingDate string
	Link        string
}

// BuildHTML renders the email body. Scores are color coded: 70 and above
// green, 40 and above orange, the rest red.
func BuildHTML(tenders []*mercadopublico.Tender) (string, error) {
	rows := make([]digestRow, 0, len(tenders))
	for _, t := range tenders {
		score, reason := 0, ""
		if t.AI != nil {
			score, reason = t.AI.Score, t.AI.Reason
		}

		rows = append(rows, digestRow{
			Score:       score,
			Color:       scoreColor(score),
			Name:        t.Nombre,
			Agency:      t.Organismo,
			Reason:      reason,
			ClosingDate: t.FechaCierre,
			Link:        t.Link,
		})
	}

	var b strings.Builder
	if err := digestTmpl.Execute(&b, struct{ Rows []digestRow }{Rows: rows}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func scoreColor(score int) string {
	switch {
	case score >= 70:
		return "green"
	case score >= 40:
		return "orange"
	default:
		return "red"
	}
}
