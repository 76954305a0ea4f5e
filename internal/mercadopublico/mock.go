package mercadopublico

import (
	"fmt"
	"time"
)

// MockTenders returns a small illustrative set used when no API ticket is
// configured. Every name is marked so mock records cannot be mistaken for
// live data.
func MockTenders(keywords string) *Tenders {
	today := time.Now().Format(dateLayout)

	items := []*Tender{
		{
			CodigoExterno: "123-LP24-MOCK",
			Nombre:        "Licencia Software Antivirus (MOCK)",
			Organismo:     "Ministerio de Salud",
			FechaCierre:   "2024-12-30",
			CodigoEstado:  StatusPublished,
		},
		{
			CodigoExterno: "456-LQ24-MOCK",
			Nombre:        "Renovación Notebooks (MOCK)",
			Organismo:     "Municipalidad de Santiago",
			FechaCierre:   "2024-11-15",
			CodigoEstado:  StatusClosed,
		},
		{
			CodigoExterno: "789-LR24-MOCK",
			Nombre:        "Servicio de Cloud Hosting (MOCK)",
			Organismo:     "SII",
			FechaCierre:   "2025-01-20",
			CodigoEstado:  StatusPublished,
		},
		{
			CodigoExterno: "999-XYZ-MOCK",
			Nombre:        fmt.Sprintf("Licitación %s (MOCK)", keywords),
			Organismo:     "Gobierno Regional",
			FechaCierre:   "2025-02-01",
			CodigoEstado:  StatusPublished,
		},
	}

	for _, item := range items {
		item.Estado = StatusLabel(item.CodigoEstado)
		item.Link = ReferenceLink(item.CodigoExterno)
		item.FechaConsulta = today
	}

	return &Tenders{Items: items}
}
