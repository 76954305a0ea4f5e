package mercadopublico

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"
)

const referenceLinkTemplate = "https://www.google.com/search?q=site:mercadopublico.cl+%s"

type Tenders struct {
	Items []*Tender
}

// Tender is one notice as seen on one fetch day. CodigoExterno is the
// API-assigned identity and the only stable key across calls.
type Tender struct {
	CodigoExterno string `json:"codigo_externo,omitempty"`
	Nombre        string `json:"nombre,omitempty"`
	Descripcion   string `json:"descripcion,omitempty"`
	Organismo     string `json:"organismo,omitempty"`
	FechaCierre   string `json:"fecha_cierre,omitempty"`
	CodigoEstado  int    `json:"codigo_estado,omitempty"`
	Estado        string `json:"estado,omitempty"`
	// FechaConsulta is the ddMMyyyy date string used for the fetch call that
	// produced this record, not necessarily the notice's true publish date.
	FechaConsulta string `json:"fecha_consulta,omitempty"`
	Link          string `json:"link,omitempty"`

	AI *ai.Analysis `json:"ai,omitempty"`
}

// ReferenceLink builds a search-engine query URL for the given tender code.
// The portal blocks deep links from external referrers, so a quoted site
// search is the only link that works for everyone.
func ReferenceLink(code string) string {
	quoted := url.QueryEscape(fmt.Sprintf("%q", code))
	return fmt.Sprintf(referenceLinkTemplate, quoted)
}

func (t *Tenders) Len() int {
	return len(t.Items)
}

func (t *Tenders) FindByCode(code string) *Tender {
	for _, tender := range t.Items {
		if tender.CodigoExterno == code {
			return tender
		}
	}
	return nil
}

func (t *Tenders) Codes() []string {
	codes := make([]string, 0, len(t.Items))
	for _, tender := range t.Items {
		codes = append(codes, tender.CodigoExterno)
	}
	return codes
}

// Dedupe removes tenders repeating an already seen CodigoExterno. A notice
// published on day one is still listed on day two of a range, so multi-day
// fetches produce duplicates. First occurrence wins, order is preserved.
func (t *Tenders) Dedupe() int {
	seen := make(map[string]struct{}, len(t.Items))
	kept := t.Items[:0]
	removed := 0

	for _, tender := range t.Items {
		if _, ok := seen[tender.CodigoExterno]; ok {
			removed++
			continue
		}
		seen[tender.CodigoExterno] = struct{}{}
		kept = append(kept, tender)
	}

	t.Items = kept
	return removed
}

// ReportByAgency groups tenders under "agency" keys for a quick overview.
func (t *Tenders) ReportByAgency() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, tender := range t.Items {
		entry := map[string]string{
			"codigo": tender.CodigoExterno,
			"nombre": tender.Nombre,
			"cierre": tender.FechaCierre,
			"estado": tender.Estado,
			"link":   tender.Link,
		}

		if tender.AI != nil {
			entry["ai_score"] = fmt.Sprintf("%d", tender.AI.Score)
			entry["ai_reason"] = tender.AI.Reason
		}

		report[tender.Organismo] = append(report[tender.Organismo], entry)
	}
	return report
}

func (t *Tenders) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "licitaciones_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return "", err
	}
	return file.Name(), nil
}
