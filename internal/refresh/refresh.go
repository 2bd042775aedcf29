// Package refresh schedules periodic re-resolution of the discovery
// manifests and publishes the results into the catalog store.
//
// The pipeline itself never retries; retry policy belongs to the
// caller, and this package is that caller. Transport failures are
// retried with exponential backoff inside a bounded window; every
// other outcome is terminal for the cycle.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/lumivpn/discovery/internal/discovery"
)

const (
	// DefaultInterval is the default time between refresh cycles
	DefaultInterval = 1 * time.Hour
	// DefaultRetryWindow bounds the backoff retries within one cycle
	DefaultRetryWindow = 2 * time.Minute
)

// Config holds the refresher's collaborators and timing.
type Config struct {
	// Pipeline resolves manifests; required
	Pipeline *discovery.Pipeline
	// Store receives verified catalogs; required
	Store *discovery.Store
	// Kinds to refresh each cycle (default: all manifest kinds)
	Kinds []discovery.Kind
	// Interval between refresh cycles (default: DefaultInterval)
	Interval time.Duration
	// RetryWindow bounds transport-failure retries within a cycle
	// (default: DefaultRetryWindow)
	RetryWindow time.Duration
	// Logger defaults to a no-op logger
	Logger *zerolog.Logger
}

// Refresher periodically resolves each manifest kind and keeps the
// store current.
type Refresher struct {
	pipeline    *discovery.Pipeline
	store       *discovery.Store
	kinds       []discovery.Kind
	interval    time.Duration
	retryWindow time.Duration
	log         zerolog.Logger
}

// New creates a refresher from the given configuration.
func New(cfg Config) (*Refresher, error) {
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("Pipeline is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("Store is required")
	}

	kinds := cfg.Kinds
	if len(kinds) == 0 {
		kinds = discovery.Kinds()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	retryWindow := cfg.RetryWindow
	if retryWindow <= 0 {
		retryWindow = DefaultRetryWindow
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Refresher{
		pipeline:    cfg.Pipeline,
		store:       cfg.Store,
		kinds:       kinds,
		interval:    interval,
		retryWindow: retryWindow,
		log:         log,
	}, nil
}

// Run refreshes immediately, then on every interval tick, until ctx is
// cancelled. It always returns ctx.Err().
func (r *Refresher) Run(ctx context.Context) error {
	r.RefreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll runs one refresh cycle over all configured kinds.
func (r *Refresher) RefreshAll(ctx context.Context) {
	for _, kind := range r.kinds {
		r.Refresh(ctx, kind)
	}
}

// Refresh resolves a single kind, retrying transport failures with
// exponential backoff, and applies the final outcome to the store.
func (r *Refresher) Refresh(ctx context.Context, kind discovery.Kind) discovery.Outcome {
	var out discovery.Outcome

	operation := func() error {
		out = r.pipeline.Resolve(ctx, kind)
		if out.Status == discovery.StatusFetchFailed {
			return out.Err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = r.retryWindow

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		r.log.Warn().Err(err).Stringer("kind", kind).Msg("refresh gave up on transport failure")
		return out
	}

	switch out.Status {
	case discovery.StatusReady:
		r.store.Publish(kind, out.Catalog)
		r.log.Info().Stringer("kind", kind).Int("entries", out.Catalog.Len()).Msg("catalog refreshed")
	case discovery.StatusDeleted:
		r.store.Remove(kind)
		r.log.Info().Stringer("kind", kind).Msg("catalog removed, authority deleted the manifest")
	case discovery.StatusSignatureInvalid, discovery.StatusMalformedCatalog:
		// Keep serving the last verified catalog rather than dropping
		// to a forged or broken one.
		r.log.Error().Stringer("kind", kind).Stringer("status", out.Status).Err(out.Err).
			Msg("refresh rejected, keeping last verified catalog")
	}

	return out
}
