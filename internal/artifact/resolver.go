package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/features"
	"demand-forecast/internal/history"
	"demand-forecast/internal/observability"
	"demand-forecast/internal/predictor"
	"demand-forecast/internal/tracing"
)

const tracerName = "demand-forecast/artifact"

// Resolver constructs the artifact once and publishes it to every caller.
// Concurrent first callers block until construction finishes; later calls
// read the published artifact without locking. Failures are not cached.
type Resolver struct {
	tunedPath string
	basePath  string
	history   *history.Chain
	parse     features.ParseOptions
	alpha     float64
	logger    *log.Logger

	mu      sync.Mutex
	current atomic.Pointer[Artifact]
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	TunedPath string // tuned bundle, optional
	BasePath  string // base bundle, optional
	// History supplies records for the fallback tier and for bundles without history.
	History *history.Chain
	// Parse controls feature column parsing of loaded bundles.
	Parse features.ParseOptions
	// SmoothingAlpha is the fallback predictor's alpha. 0 uses the default.
	SmoothingAlpha float64
	Logger         *log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts ResolverOptions) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	chain := opts.History
	if chain == nil {
		chain = history.NewChain(logger)
	}
	return &Resolver{
		tunedPath: opts.TunedPath,
		basePath:  opts.BasePath,
		history:   chain,
		parse:     opts.Parse,
		alpha:     opts.SmoothingAlpha,
		logger:    logger,
	}
}

// Resolve returns the published artifact, constructing it on first use.
func (r *Resolver) Resolve(ctx context.Context) (*Artifact, error) {
	if a := r.current.Load(); a != nil {
		return a, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a := r.current.Load(); a != nil {
		return a, nil
	}

	a, err := r.build(ctx)
	if err != nil {
		return nil, err
	}
	r.current.Store(a)
	return a, nil
}

// Reload constructs a fresh artifact and publishes it in place of the current one.
// Callers already holding the previous artifact keep using it. On failure the
// current artifact stays published.
func (r *Resolver) Reload(ctx context.Context) (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.build(ctx)
	if err != nil {
		return nil, err
	}
	r.current.Store(a)
	return a, nil
}

// Current returns the published artifact, or nil if none has been resolved.
func (r *Resolver) Current() *Artifact {
	return r.current.Load()
}

func (r *Resolver) build(ctx context.Context) (*Artifact, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "artifact.Resolve")
	defer span.End()

	start := time.Now()
	a, err := r.resolve(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		observability.RecordResolution("none", "error", time.Since(start).Seconds(), 0)
		r.logger.Printf("artifact resolution failed: %v", err)
		return nil, err
	}

	span.SetAttributes(tracing.AttrTier.String(string(a.Tier)), tracing.AttrSource.String(a.Source))
	observability.RecordResolution(string(a.Tier), "success", time.Since(start).Seconds(), a.History.Len())
	r.logger.Printf("resolved %s artifact %s: %d columns, %d products, history from %s",
		a.Tier, a.Fingerprint, a.Spec.Len(), len(a.History.Products()), a.Source)
	return a, nil
}

// resolve walks tuned, base, then fallback. A missing bundle or a model type
// without runtime support falls through; any other failure is returned.
func (r *Resolver) resolve(ctx context.Context) (*Artifact, error) {
	tiers := []struct {
		tier domain.Tier
		path string
	}{
		{domain.TierTuned, r.tunedPath},
		{domain.TierBase, r.basePath},
	}

	// History is loaded at most once per resolution.
	var (
		histOnce  sync.Once
		histStore *history.Store
		histName  string
		histErr   error
	)
	loadHistory := func() (*history.Store, string, error) {
		histOnce.Do(func() {
			histStore, histName, histErr = r.history.Load(ctx)
			if histErr != nil {
				histErr = fmt.Errorf("%w: %w", ErrDataUnavailable, histErr)
			}
		})
		return histStore, histName, histErr
	}

	for _, t := range tiers {
		if t.path == "" {
			continue
		}
		a, err := r.loadBundle(t.tier, t.path, loadHistory)
		switch {
		case err == nil:
			return a, nil
		case errors.Is(err, os.ErrNotExist):
			r.logger.Printf("%s bundle not found at %s, skipping", t.tier, t.path)
		case errors.Is(err, predictor.ErrDependencyMissing):
			r.logger.Printf("%s bundle skipped: %v", t.tier, err)
		default:
			return nil, fmt.Errorf("load %s artifact: %w", t.tier, err)
		}
	}

	store, source, err := loadHistory()
	if err != nil {
		return nil, err
	}
	r.logger.Printf("synthesizing fallback artifact from %s history", source)
	return Synthesize(store, source, r.alpha)
}

func (r *Resolver) loadBundle(tier domain.Tier, path string, hist func() (*history.Store, string, error)) (*Artifact, error) {
	b, raw, err := ReadBundle(path)
	if err != nil {
		return nil, err
	}
	return decode(b, raw, tier, r.parse, hist)
}
