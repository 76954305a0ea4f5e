// Package report renders fetched tenders for the terminal and for export.
package report

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/mercadopublico"
)

const (
	maxNameWidth   = 48
	maxAgencyWidth = 32
	notAnalyzed    = "No analizado"
)

var tableHeader = []string{"Código", "Nombre", "Organismo", "Cierre", "Estado", "Score IA"}

// RenderTable formats tenders as an aligned text table. Column widths are
// computed with runewidth so accented agency names do not skew alignment.
func RenderTable(tenders *mercadopublico.Tenders) string {
	rows := make([][]string, 0, tenders.Len()+1)
	rows = append(rows, tableHeader)

	for _, t := range tenders.Items {
		score := notAnalyzed
		if t.AI != nil {
			score = fmt.Sprintf("%d", t.AI.Score)
		}

		rows = append(rows, []string{
			t.CodigoExterno,
			runewidth.Truncate(t.Nombre, maxNameWidth, "…"),
			runewidth.Truncate(t.Organismo, maxAgencyWidth, "…"),
			t.FechaCierre,
			t.Estado,
			score,
		})
	}

	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for idx, row := range rows {
		for i, cell := range row {
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")

		if idx == 0 {
			for i, w := range widths {
				b.WriteString(strings.Repeat("-", w))
				if i < len(widths)-1 {
					b.WriteString("  ")
				}
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
