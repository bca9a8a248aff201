// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrorHandlerFunc is called when a handler returns an error. The response may already be partially written.
type ErrorHandlerFunc func(c *Context, err error)

// Service owns the live [Router] and the protocol to replace it. The built-in routes registered with [WithRoutes]
// are compiled once into a Builder; every rebuild starts from a copy of it, runs the collectors, and atomically
// swaps the new Router in. Routing is lock-free and never observes a partially built tree.
type Service struct {
	router     atomic.Pointer[Router]
	builtin    *Builder
	lookup     *TokenLookup
	sched      *scheduler
	logger     *slog.Logger
	reg        prometheus.Registerer
	m          *metrics
	tp         trace.TracerProvider
	tracer     trace.Tracer
	notFound   http.Handler
	seeds      []func(b *Builder) error
	collectors []*collector
	rcfg       routerConfig
	delay      time.Duration
	// Rebuilds are serialized.
	rmu sync.Mutex
	// Protect collectors and seq.
	cmu    sync.RWMutex
	seq    int
	closed atomic.Bool
}

// New returns a ready to use Service. The built-in routes are registered and the first Router is built before
// New returns: any registration or build error is returned. If a collector rejects the first rebuild, the Service
// starts with a Router holding the built-in routes only.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		lookup:   NewTokenLookup(),
		delay:    DefaultRebuildDelay,
		notFound: http.HandlerFunc(DefaultNotFoundHandler),
		rcfg:     defaultRouterConfig(),
		logger:   slog.New(defaultHandler),
	}

	for _, opt := range opts {
		if err := opt.applyService(sealedOption{svc: s}); err != nil {
			return nil, err
		}
	}

	for i, c := range s.collectors {
		c.seq = i
	}
	s.seq = len(s.collectors)

	if s.tp == nil {
		s.tp = otel.GetTracerProvider()
	}
	s.tracer = s.tp.Tracer(tracerName)
	s.m = newMetrics(s.reg)
	s.rcfg.logger = s.logger

	s.builtin = NewBuilder(s.lookup)
	for _, seed := range s.seeds {
		if err := seed(s.builtin); err != nil {
			return nil, fmt.Errorf("built-in routes: %w", err)
		}
	}

	rejected, err := s.rebuild(context.Background())
	if err != nil {
		return nil, err
	}
	if rejected {
		rt, err := s.builtin.Clone().build(s.rcfg)
		if err != nil {
			return nil, err
		}
		s.swap(rt)
	}

	s.sched = newScheduler(s.delay, func() {
		// Errors are already logged and counted by rebuild.
		_ = s.Rebuild(context.Background())
	})
	return s, nil
}

// Current returns the live Router. The returned Router is immutable and stays valid after being replaced.
func (s *Service) Current() *Router {
	return s.router.Load()
}

// HandleRequest routes the request with the live Router. It returns false if no terminal matches the request.
func (s *Service) HandleRequest(w http.ResponseWriter, r *http.Request) bool {
	handled := s.Current().HandleRequest(w, r)
	s.m.observeRequest(handled)
	return handled
}

// ServeHTTP is the main entry point to serve a request. Requests not handled by the live Router are passed to the
// not found handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.HandleRequest(w, r) {
		s.notFound.ServeHTTP(w, r)
	}
}

// AddCollector registers a [CollectorFunc] run on every subsequent rebuild. It does not trigger a rebuild, see
// [Service.RequestRebuild]. This function is safe for concurrent use by multiple goroutine.
func (s *Service) AddCollector(name string, priority int, fn CollectorFunc) error {
	c, err := newCollector(name, priority, fn)
	if err != nil {
		return err
	}
	s.cmu.Lock()
	c.seq = s.seq
	s.seq++
	s.collectors = append(s.collectors, c)
	s.cmu.Unlock()
	return nil
}

// RequestRebuild schedules a rebuild after the rebuild delay. Requests received while a rebuild is pending are
// coalesced into it. A request received while a rebuild is running schedules a new one.
func (s *Service) RequestRebuild() {
	if s.closed.Load() {
		return
	}
	if s.sched.Request() {
		s.logger.Debug("rebuild scheduled", slog.Duration("delay", s.delay))
	}
}

// Rebuild builds a new Router from the built-in routes and the collectors, then replaces the live Router. If a
// collector rejects the rebuild, the live Router is kept and Rebuild returns nil. Any other failure leaves the live
// Router unchanged and is returned.
func (s *Service) Rebuild(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServiceClosed
	}
	_, err := s.rebuild(ctx)
	return err
}

func (s *Service) rebuild(ctx context.Context) (rejected bool, err error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	s.cmu.RLock()
	collectors := slices.Clone(s.collectors)
	s.cmu.RUnlock()
	sortCollectors(collectors)

	start := time.Now()
	ctx, span := startRebuildSpan(ctx, s.tracer, len(collectors))

	b := s.builtin.Clone()
	for _, c := range collectors {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrRebuildInterrupted, ctx.Err())
			s.fail(span, start, err)
			return false, err
		}

		var next *Builder
		next, err = c.fn(ctx, b)
		if err != nil {
			err = fmt.Errorf("collector %s: %w", c.name, err)
			s.fail(span, start, err)
			return false, err
		}
		if next == nil {
			s.m.observeRebuild(outcomeRejected, time.Since(start))
			endRebuildSpan(span, outcomeRejected, nil, nil)
			s.logger.Warn("rebuild rejected", slog.String("collector", c.name))
			return true, nil
		}
		b = next
	}

	rt, err := b.build(s.rcfg)
	if err != nil {
		s.fail(span, start, err)
		return false, err
	}

	s.swap(rt)
	elapsed := time.Since(start)
	s.m.observeRebuild(outcomeSuccess, elapsed)
	endRebuildSpan(span, outcomeSuccess, rt, nil)
	s.logger.Info(
		"router rebuilt",
		slog.String("build", rt.ID()),
		slog.Int("endpoints", rt.Len()),
		slog.Int("collectors", len(collectors)),
		slog.Duration("latency", roundLatency(elapsed)),
	)
	return false, nil
}

func (s *Service) fail(span trace.Span, start time.Time, err error) {
	s.m.observeRebuild(outcomeFailed, time.Since(start))
	endRebuildSpan(span, outcomeFailed, nil, err)
	s.logger.Error("rebuild failed", slog.String("error", err.Error()))
}

func (s *Service) swap(rt *Router) {
	s.router.Store(rt)
	s.m.setEndpoints(rt.Len())
}

// ForEachEndpoint calls fn for every terminal of the live Router, until fn returns false.
func (s *Service) ForEachEndpoint(fn func(ep Endpoint) bool) {
	s.Current().ForEachEndpoint(fn)
}

// Metadata returns the metadata of every node of the live Router for the given method.
func (s *Service) Metadata(method string) []NodeMetadata {
	return s.Current().Metadata(method)
}

// Close stops any pending rebuild. The live Router keeps serving requests, but the Service cannot be rebuilt
// anymore.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrServiceClosed
	}
	s.sched.Stop()
	return nil
}

// DefaultNotFoundHandler is a simple handler that replies to each request with a “404 page not found” reply.
func DefaultNotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "404 page not found", http.StatusNotFound)
}

// DefaultErrorHandler replies with the status code of an [HTTPError], or with http.StatusInternalServerError
// for any other error. Server errors are logged. Nothing is written if the response was already written.
func DefaultErrorHandler(c *Context, err error) {
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		msg = httpErr.Error()
	}

	if code >= http.StatusInternalServerError {
		c.router.cfg.logger.LogAttrs(
			c.Ctx(),
			slog.LevelError,
			"handler error",
			slog.String("method", c.req.Method),
			slog.String("route", c.Route()),
			slog.String("error", err.Error()),
		)
	}

	if c.Writer().Written() {
		return
	}
	http.Error(c.Writer(), msg, code)
}
