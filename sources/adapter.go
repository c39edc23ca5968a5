package sources

import (
	"context"
	"fmt"
	"runtime/debug"

	"emarknews/types"

	"go.uber.org/zap"
)

// Adapter fetches one provider and normalizes its items. It never fails:
// any error is logged and yields an empty batch.
type Adapter interface {
	Fetch(ctx context.Context, d types.Descriptor) []types.Article
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, d types.Descriptor) []types.Article

func (f AdapterFunc) Fetch(ctx context.Context, d types.Descriptor) []types.Article {
	return f(ctx, d)
}

// Registry dispatches descriptors to the adapter for their kind.
type Registry struct {
	adapters map[types.SourceKind]Adapter
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{adapters: make(map[types.SourceKind]Adapter), logger: logger}
}

// Register binds an adapter to a source kind.
func (r *Registry) Register(kind types.SourceKind, a Adapter) *Registry {
	r.adapters[kind] = a
	return r
}

// NewDefaultRegistry wires the built-in adapters over one shared Fetcher.
func NewDefaultRegistry(fetcher *Fetcher, newsAPIKey string, logger *zap.Logger) *Registry {
	return NewRegistry(logger).
		Register(types.KindRSS, NewRSSAdapter(fetcher, logger)).
		Register(types.KindNewsAPI, NewNewsAPIAdapter(fetcher, newsAPIKey, logger)).
		Register(types.KindReddit, NewRedditAdapter(fetcher, logger))
}

// Fetch runs the adapter for d.Kind. Panics inside an adapter are
// recovered so nothing escapes the source boundary.
func (r *Registry) Fetch(ctx context.Context, d types.Descriptor) (out []types.Article) {
	a, ok := r.adapters[d.Kind]
	if !ok {
		r.logger.Warn("no adapter for source kind", zap.String("source", d.Name), zap.String("kind", string(d.Kind)))
		return []types.Article{}
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("source adapter panicked",
				zap.String("source", d.Name),
				zap.String("panic", fmt.Sprint(rec)),
				zap.ByteString("stack", debug.Stack()))
			out = []types.Article{}
		}
	}()
	out = a.Fetch(ctx, d)
	if out == nil {
		out = []types.Article{}
	}
	return out
}
