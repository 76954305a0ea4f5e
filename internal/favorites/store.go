// Package favorites persists tenders the user starred, with the score and
// reason frozen at save time. Later re-analysis never updates a favorite.
package favorites

import (
	"time"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/mercadopublico"
)

// Favorite is the persisted projection of a tender. Code is the primary key.
type Favorite struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Agency      string    `json:"agency,omitempty"`
	ClosingDate string    `json:"closing_date,omitempty"`
	Link        string    `json:"link,omitempty"`
	Score       int       `json:"score"`
	Reason      string    `json:"reason,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store is a key-value favorites collection keyed by tender code.
type Store interface {
	// Add persists the favorite and reports false when the code already exists.
	Add(f *Favorite) (bool, error)
	List() ([]*Favorite, error)
	Remove(code string) error
}

// FromTender snapshots a tender, including its current analysis if any.
func FromTender(t *mercadopublico.Tender) *Favorite {
	f := &Favorite{
		Code:        t.CodigoExterno,
		Name:        t.Nombre,
		Agency:      t.Organismo,
		ClosingDate: t.FechaCierre,
		Link:        t.Link,
		SavedAt:     time.Now().UTC(),
	}

	if t.AI != nil {
		f.Score = t.AI.Score
		f.Reason = t.AI.Reason
	}

	return f
}
