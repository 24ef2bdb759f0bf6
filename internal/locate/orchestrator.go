package locate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/agenda-lojas/agenda/internal/geo"
	"github.com/agenda-lojas/agenda/internal/logger"
)

// Orchestrator runs the locate ladder. It is safe for concurrent use; only one run is
// active at a time.
type Orchestrator struct {
	provider       Provider
	permissions    PermissionChecker
	ip             IPLocator
	quickCeiling   time.Duration
	preciseCeiling time.Duration
	onProgress     func(State, string)
	log            *logger.Logger

	running atomic.Bool
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPermissionChecker enables the permission pre-check
func WithPermissionChecker(c PermissionChecker) Option {
	return func(o *Orchestrator) { o.permissions = c }
}

// WithCeilings overrides the external timeouts of the quick and precise attempts
func WithCeilings(quick, precise time.Duration) Option {
	return func(o *Orchestrator) {
		o.quickCeiling = quick
		o.preciseCeiling = precise
	}
}

// WithProgress registers a callback for each request state and its progress message
func WithProgress(fn func(State, string)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// New creates an Orchestrator. A nil provider means geolocation is unsupported; a nil
// ip locator disables the IP fallback.
func New(provider Provider, ip IPLocator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:       provider,
		ip:             ip,
		quickCeiling:   QuickCeiling,
		preciseCeiling: PreciseCeiling,
		log:            logger.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With(logger.Fields{"component": "locate"})
	return o
}

// Running reports whether a run is in progress
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Locate runs the ladder once. It returns ErrInProgress when a run is already active and
// the context error when ctx ends; every other failure is reported in the Outcome.
func (o *Orchestrator) Locate(ctx context.Context) (*Outcome, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrInProgress
	}
	defer o.running.Store(false)

	out := &Outcome{State: StateIdle, Steps: []State{StateIdle}}

	if o.provider == nil {
		return o.finish(out, StateUnavailable, MessageUnsupported, ErrUnsupported), nil
	}

	if o.permissions != nil {
		// A failing check is ignored, as if it were not available
		if p, err := o.permissions.Permission(ctx); err == nil && p == PermissionDenied {
			return o.finish(out, StateDenied, MessagePermissionBlocked, ErrPermissionDenied), nil
		}
	}

	o.enter(out, StateRequestingQuick, MessageLocating)
	point, err := o.attempt(ctx, QuickOptions, o.quickCeiling)
	if err == nil {
		return o.resolve(out, point, SourceDevice), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	o.log.Debug("Quick attempt failed", logger.Fields{"error": err.Error()})

	o.enter(out, StateRequestingPrecise, MessageLocating)
	point, err = o.attempt(ctx, PreciseOptions, o.preciseCeiling)
	if err == nil {
		return o.resolve(out, point, SourceDevice), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	o.log.Info("Precise attempt failed", logger.Fields{"error": err.Error()})

	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrPositionUnavailable):
		if o.ip == nil {
			return o.finish(out, StateUnavailable, MessageUnavailable, err), nil
		}
		o.enter(out, StateRequestingIP, MessageIPFallback)
		point, ipErr := o.ip.LocateIP(ctx)
		if ipErr == nil && point.Valid() {
			return o.resolve(out, point, SourceIP), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if ipErr == nil {
			ipErr = fmt.Errorf("ip lookup returned invalid position %s", point)
		}
		o.log.Warn("IP fallback failed", logger.Fields{"error": ipErr.Error()})
		return o.finish(out, StateUnavailable, MessageUnavailable, ipErr), nil
	case errors.Is(err, ErrPermissionDenied):
		return o.finish(out, StateDenied, MessageDenied, err), nil
	case errors.Is(err, ErrUnsupported):
		return o.finish(out, StateUnavailable, MessageUnsupported, err), nil
	default:
		return o.finish(out, StateUnavailable, MessageUnavailable, err), nil
	}
}

// attempt races the provider against the ceiling. The provider call is not interrupted
// when the ceiling fires; its late result is dropped.
func (o *Orchestrator) attempt(ctx context.Context, opts Options, ceiling time.Duration) (geo.Point, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	type fix struct {
		point geo.Point
		err   error
	}
	done := make(chan fix, 1)
	go func() {
		p, err := o.provider.CurrentPosition(attemptCtx, opts)
		done <- fix{point: p, err: err}
	}()

	select {
	case f := <-done:
		switch {
		case f.err == nil && !f.point.Valid():
			return geo.Point{}, fmt.Errorf("%w: invalid position %s", ErrPositionUnavailable, f.point)
		case errors.Is(f.err, context.DeadlineExceeded) && ctx.Err() == nil:
			return geo.Point{}, fmt.Errorf("%w: no fix within %s", ErrTimeout, ceiling)
		}
		return f.point, f.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return geo.Point{}, ctx.Err()
		}
		return geo.Point{}, fmt.Errorf("%w: no fix within %s", ErrTimeout, ceiling)
	}
}

func (o *Orchestrator) enter(out *Outcome, s State, message string) {
	out.State = s
	out.Steps = append(out.Steps, s)
	if o.onProgress != nil {
		o.onProgress(s, message)
	}
}

func (o *Orchestrator) resolve(out *Outcome, p geo.Point, src Source) *Outcome {
	o.enter(out, StateResolved, "")
	out.Point = &p
	out.Source = src
	o.log.Info("Location resolved", logger.Fields{"source": string(src), "geohash": geo.Redact(p)})
	return out
}

func (o *Orchestrator) finish(out *Outcome, s State, message string, err error) *Outcome {
	o.enter(out, s, message)
	out.Message = message
	out.Err = err
	o.log.Info("Location not resolved", logger.Fields{"state": string(s)})
	return out
}
