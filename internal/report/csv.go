package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/mercadopublico"
)

var csvHeader = []string{"ID", "Nombre", "Organismo", "Fecha Cierre", "Estado", "Link", "Score IA", "Razón IA"}

// WriteCSV flattens tenders with their merged analysis columns. Records
// without an analysis export a zero score and a "No analizado" reason.
func WriteCSV(w io.Writer, tenders *mercadopublico.Tenders) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, t := range tenders.Items {
		score, reason := 0, notAnalyzed
		if t.AI != nil {
			score, reason = t.AI.Score, t.AI.Reason
		}

		record := []string{
			t.CodigoExterno,
			t.Nombre,
			t.Organismo,
			t.FechaCierre,
			t.Estado,
			t.Link,
			strconv.Itoa(score),
			reason,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// DumpCSVToTmpFile writes the CSV export to a temp file and returns its path.
func DumpCSVToTmpFile(tenders *mercadopublico.Tenders) (string, error) {
	file, err := os.CreateTemp("", "licitaciones_*.csv")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := WriteCSV(file, tenders); err != nil {
		return "", err
	}
	return file.Name(), nil
}
