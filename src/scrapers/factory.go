package scrapers

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/config"
	"github.com/svacron/metals/backend/src/scrapers/apininjas"
	"github.com/svacron/metals/backend/src/scrapers/fivepaisa"
	"github.com/svacron/metals/backend/src/scrapers/mcx"
	"github.com/svacron/metals/backend/src/scrapers/yahoo"
)

// Registry holds every configured observation source, keyed by name.
type Registry struct {
	sources map[string]ObservationSource
	def     string
}

// NewRegistry wires up all observation sources from config. apiKeyFn and
// usdRateFn are read per call so admin-dashboard updates take effect without
// a restart.
func NewRegistry(cfg *config.AppConfig, apiKeyFn func(ctx context.Context) string, usdRateFn func(ctx context.Context) decimal.Decimal) (*Registry, error) {
	timeout := time.Duration(cfg.ScraperTimeoutS) * time.Second

	sources := map[string]ObservationSource{
		fivepaisa.SourceName: fivepaisa.New(cfg.FivePaisaBase, timeout),
		mcx.SourceName:       mcx.New(cfg.MCXSpotURL, timeout),
		yahoo.SourceName:     yahoo.New(timeout, usdRateFn),
		apininjas.SourceName: apininjas.New(cfg.APINinjasBase, timeout, apiKeyFn, usdRateFn),
	}

	if _, ok := sources[cfg.DefaultSource]; !ok {
		return nil, fmt.Errorf("unknown DEFAULT_PRICE_SOURCE %q", cfg.DefaultSource)
	}
	return &Registry{sources: sources, def: cfg.DefaultSource}, nil
}

// NewStaticRegistry builds a registry from an explicit source list. The first
// source is the default.
func NewStaticRegistry(sources ...ObservationSource) *Registry {
	r := &Registry{sources: make(map[string]ObservationSource, len(sources))}
	for i, source := range sources {
		if i == 0 {
			r.def = source.Name()
		}
		r.sources[source.Name()] = source
	}
	return r
}

// Get returns the source with the given name, or the default source when
// name is empty.
func (r *Registry) Get(name string) (ObservationSource, error) {
	if name == "" {
		name = r.def
	}
	source, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown price source %q", name)
	}
	return source, nil
}

// DefaultName returns the configured default source name.
func (r *Registry) DefaultName() string {
	return r.def
}
