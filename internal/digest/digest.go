// Package digest builds and mails the daily tender report.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/mercadopublico"
)

// defaultLimit caps per-digest analysis to stay clear of quota limits.
const defaultLimit = 5

type Runner struct {
	Client   *mercadopublico.Client
	Analyzer ai.Analyzer
	Mailer   *Mailer
	Logger   *zap.Logger

	Keywords      string
	Profile       string
	OnlyPublished bool
	To            string
	Limit         int
}

// Run fetches today's tenders, scores the first few against the profile and
// mails the rendered report. An empty day is not an error.
func (r *Runner) Run(ctx context.Context) error {
	today := time.Now()

	tenders, err := r.Client.Fetch(&mercadopublico.SearchParams{
		Keywords:      r.Keywords,
		From:          today,
		To:            today,
		OnlyPublished: r.OnlyPublished,
	})
	if err != nil {
		return fmt.Errorf("fetching tenders: %w", err)
	}

	if tenders.Len() == 0 {
		r.Logger.Info("no tenders found today, skipping digest")
		return nil
	}

	limit := r.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > tenders.Len() {
		limit = tenders.Len()
	}

	analyzed := tenders.Items[:limit]
	for i, t := range analyzed {
		r.Logger.Info("analyzing tender for digest",
			zap.Int("position", i+1),
			zap.Int("limit", limit),
			zap.String("codigo", t.CodigoExterno),
		)

		t.AI = r.Analyzer.Analyze(ctx, &ai.Request{
			Title:       t.Nombre,
			Description: fmt.Sprintf("Organismo: %s", t.Organismo),
			Criteria:    r.Profile,
		})
	}

	html, err := BuildHTML(analyzed)
	if err != nil {
		return fmt.Errorf("rendering digest: %w", err)
	}

	subject := fmt.Sprintf("Licitaciones del Día (%s) - %s", today.Format("02-01-2006"), r.Keywords)
	if err := r.Mailer.Send(r.To, subject, html); err != nil {
		return fmt.Errorf("sending digest: %w", err)
	}

	r.Logger.Info("digest sent",
		zap.String("to", r.To),
		zap.Int("analyzed", len(analyzed)),
		zap.Int("fetched", tenders.Len()),
	)

	return nil
}

// Schedule registers Run on the given cron spec and starts the scheduler.
func (r *Runner) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithLogger(cron.DefaultLogger))

	_, err := c.AddFunc(spec, func() {
		if err := r.Run(ctx); err != nil {
			r.Logger.Error("scheduled digest failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("cron.AddFunc: %w", err)
	}

	c.Start()
	r.Logger.Info("digest scheduler started", zap.String("spec", spec))

	return c, nil
}
