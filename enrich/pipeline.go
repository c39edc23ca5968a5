package enrich

import (
	"context"
	"strings"

	"emarknews/config"
	"emarknews/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pipeline adds translations and summaries to a ranked batch. It only
// ever adds fields; anything that fails is left as it was.
type Pipeline struct {
	service     TextService
	extractor   Extractor
	locale      string
	concurrency int
	maxPoints   int
	logger      *zap.Logger
}

type PipelineOption func(*Pipeline)

func WithExtractor(e Extractor) PipelineOption { return func(p *Pipeline) { p.extractor = e } }

func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline builds a pipeline translating into locale. A nil service
// makes Enrich a copy.
func NewPipeline(service TextService, locale string, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		service:     service,
		locale:      locale,
		concurrency: config.EnrichConcurrency,
		maxPoints:   config.SummaryMaxPoints,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enrich returns a copy of batch with enrichment applied. Each article is
// attempted at most once per call.
func (p *Pipeline) Enrich(ctx context.Context, category string, batch []types.Article) []types.Article {
	out := types.CloneAll(batch)
	if p.service == nil || len(out) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range out {
		a := &out[i]
		if !p.wants(a) {
			continue
		}
		g.Go(func() error {
			p.enrichOne(ctx, a)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Debug("enrichment finished", zap.String("category", category), zap.Int("articles", len(out)))
	return out
}

func (p *Pipeline) needsTranslation(a *types.Article) bool {
	if p.locale == "" {
		return false
	}
	return a.NeedsTranslation || (a.Language != "" && a.Language != p.locale)
}

func (p *Pipeline) wants(a *types.Article) bool {
	return (p.needsTranslation(a) && a.TranslatedTitle == "") || len(a.SummaryPoints) == 0
}

func (p *Pipeline) enrichOne(ctx context.Context, a *types.Article) {
	if ctx.Err() != nil {
		return
	}

	if p.needsTranslation(a) && a.TranslatedTitle == "" {
		if res := p.service.Translate(ctx, a.Title, p.locale); res.Success {
			a.TranslatedTitle = res.Text
		}
		if a.Description != "" && a.TranslatedDescription == "" {
			if res := p.service.Translate(ctx, a.Description, p.locale); res.Success {
				a.TranslatedDescription = res.Text
			}
		}
	}

	if len(a.SummaryPoints) > 0 {
		return
	}
	text := strings.TrimSpace(a.Description)
	if text == "" && p.extractor != nil {
		extracted, err := p.extractor.Extract(ctx, a.Link)
		if err != nil {
			p.logger.Debug("extraction failed", zap.String("link", a.Link), zap.Error(err))
			return
		}
		text = extracted
	}
	if text == "" {
		return
	}
	if res := p.service.Summarize(ctx, text, SummaryOptions{MaxPoints: p.maxPoints}); res.Success {
		a.SummaryPoints = res.Points
	}
}
