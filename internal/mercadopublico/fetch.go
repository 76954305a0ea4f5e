package mercadopublico

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// ErrInvalidTicket is returned when every day in the requested range was
// rejected with 401/403. A valid ticket with zero matches returns an empty
// list instead, so the two outcomes stay distinguishable.
var ErrInvalidTicket = errors.New("mercado publico rejected the access ticket")

var errUnauthorized = errors.New("unauthorized")

// unknownAgency labels notices whose listing entry carries no buyer block.
const unknownAgency = "Desconocido"

type SearchParams struct {
	// Keywords is a comma separated list. Matching is case-insensitive
	// substring search over name and description; an empty list matches
	// every notice.
	Keywords      string
	From          time.Time
	To            time.Time
	OnlyPublished bool
}

type listingResponse struct {
	Listado []any `json:"Listado"`
}

type listingItem struct {
	CodigoExterno string `json:"CodigoExterno"`
	Nombre        string `json:"Nombre"`
	Descripcion   string `json:"Descripcion"`
	FechaCierre   string `json:"FechaCierre"`
	CodigoEstado  int    `json:"CodigoEstado"`
	Comprador     struct {
		NombreOrganismo string `json:"NombreOrganismo"`
	} `json:"Comprador"`
}

// Fetch walks every calendar day in the requested range, one listing request
// per day, and returns the notices matching the keywords and status filter.
// A failing day is logged and skipped; it never aborts the rest of the range.
// Without a ticket it returns the built-in mock set and stays offline.
func (c *Client) Fetch(params *SearchParams) (*Tenders, error) {
	if strings.TrimSpace(c.ticket) == "" {
		c.logger.Warn("no API ticket provided, using mock data")
		return MockTenders(params.Keywords), nil
	}

	from, to := normalizeRange(params.From, params.To)

	if to.Sub(from) > maxRangeDays*24*time.Hour {
		clamped := from.AddDate(0, 0, maxRangeDays)
		c.logger.Warn("date range too long, clamping",
			zap.String("requested_to", to.Format(dateLayout)),
			zap.String("clamped_to", clamped.Format(dateLayout)),
			zap.Int("max_range_days", maxRangeDays),
		)
		to = clamped
	}

	terms := splitKeywords(params.Keywords)

	all := make([]*Tender, 0)
	days, unauthorizedDays := 0, 0

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		days++
		dateStr := day.Format(dateLayout)

		items, err := c.getListing(dateStr)
		if err != nil {
			if errors.Is(err, errUnauthorized) {
				unauthorizedDays++
			}
			c.logger.Warn("fetching day failed, skipping",
				zap.String("date", dateStr),
				zap.Error(err),
			)
			continue
		}

		matched := 0
		for _, item := range items {
			if !matchesKeywords(item, terms) {
				continue
			}
			if params.OnlyPublished && item.CodigoEstado != StatusPublished {
				continue
			}
			all = append(all, newTender(item, dateStr))
			matched++
		}

		c.logger.Debug("day fetched",
			zap.String("date", dateStr),
			zap.Int("listed", len(items)),
			zap.Int("matched", matched),
		)
	}

	if unauthorizedDays == days && days > 0 {
		return nil, ErrInvalidTicket
	}

	tenders := &Tenders{Items: all}

	if removed := tenders.Dedupe(); removed > 0 {
		c.logger.Debug("removed duplicated tenders across days", zap.Int("count", removed))
	}

	if tenders.Len() == 0 {
		// A valid ticket with no matches is a legitimate empty result.
		// Falling back to mock data here would mask it.
		c.logger.Info("no tenders found via API for these criteria")
	}

	return tenders, nil
}

// getListing requests one day's full listing and decodes its items. Absence
// of the Listado key means an empty day, not an error.
func (c *Client) getListing(dateStr string) ([]*listingItem, error) {
	endpoint := c.APIURL + listingPath

	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("fecha", dateStr)
	q.Set("ticket", c.ticket)
	req.URL.RawQuery = q.Encode()

	c.logger.Debug("make request", zap.String("url", req.URL.Redacted()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", errUnauthorized, resp.Status)
	default:
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var listing listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, err
	}

	var items []*listingItem
	cfg := &mapstructure.DecoderConfig{
		Result:  &items,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(listing.Listado); err != nil {
		return nil, fmt.Errorf("decoding listing items: %w", err)
	}

	return items, nil
}

func newTender(item *listingItem, dateStr string) *Tender {
	organismo := strings.TrimSpace(item.Comprador.NombreOrganismo)
	if organismo == "" {
		organismo = unknownAgency
	}

	return &Tender{
		CodigoExterno: item.CodigoExterno,
		Nombre:        item.Nombre,
		Descripcion:   item.Descripcion,
		Organismo:     organismo,
		FechaCierre:   item.FechaCierre,
		CodigoEstado:  item.CodigoEstado,
		Estado:        StatusLabel(item.CodigoEstado),
		FechaConsulta: dateStr,
		Link:          ReferenceLink(item.CodigoExterno),
	}
}

// splitKeywords turns a comma separated keyword string into trimmed,
// case-folded terms. Empty terms are dropped; a fully empty result means
// match-all.
func splitKeywords(keywords string) []string {
	if strings.TrimSpace(keywords) == "" {
		return nil
	}

	parts := strings.Split(keywords, ",")
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		term := strings.ToLower(strings.TrimSpace(part))
		if term == "" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// matchesKeywords reports whether any term occurs in the item's name or
// description. Matching is substring based, so short terms can over-match;
// that is the documented behavior.
func matchesKeywords(item *listingItem, terms []string) bool {
	if len(terms) == 0 {
		return true
	}

	name := strings.ToLower(item.Nombre)
	desc := strings.ToLower(item.Descripcion)

	for _, term := range terms {
		if strings.Contains(name, term) || strings.Contains(desc, term) {
			return true
		}
	}
	return false
}

func normalizeRange(from, to time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = time.Now()
	}
	if to.IsZero() || to.Before(from) {
		to = from
	}
	return dateOnly(from), dateOnly(to)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
