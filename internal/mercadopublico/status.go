package mercadopublico

// Status codes used by the Mercado Público listing API.
const (
	StatusPublished = 5
	StatusClosed    = 6
	StatusDeserted  = 7
	StatusAwarded   = 8
	StatusRevoked   = 18
	StatusSuspended = 19
)

// StatusUnknownLabel is returned for any code missing from the table.
const StatusUnknownLabel = "Desconocido"

var statusLabels = map[int]string{
	StatusPublished: "Publicada",
	StatusClosed:    "Cerrada",
	StatusDeserted:  "Desierta",
	StatusAwarded:   "Adjudicada",
	StatusRevoked:   "Revocada",
	StatusSuspended: "Suspendida",
}

// StatusLabel maps an upstream status code to its human readable label.
// It is total: unmapped codes yield StatusUnknownLabel, never an error.
func StatusLabel(code int) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return StatusUnknownLabel
}
