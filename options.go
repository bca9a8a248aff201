// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tigerwill90/waypoint/internal/slogpretty"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRebuildDelay is the debounce window applied to [Service.RequestRebuild].
const DefaultRebuildDelay = 100 * time.Millisecond

type Option interface {
	applyService(sealedOption) error
}

type RouteOption interface {
	applyRoute(sealedOption) error
}

type sealedOption struct {
	svc   *Service
	route *routeConfig
}

type optionFunc func(sealedOption) error

func (o optionFunc) applyService(s sealedOption) error {
	return o(s)
}

func (o optionFunc) applyRoute(s sealedOption) error {
	return o(s)
}

// routeMeta is the display metadata attached to a terminal.
type routeMeta struct {
	name      string
	contentID string
	editURL   string
}

type routeConfig struct {
	controller any
	meta       routeMeta
	code       int
}

func newRouteConfig(opts []RouteOption) (routeConfig, error) {
	cfg := routeConfig{code: http.StatusMovedPermanently}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyRoute(sealedOption{route: &cfg}); err != nil {
			return routeConfig{}, err
		}
	}
	return cfg, nil
}

// WithRoutes registers the built-in routes of the [Service]. The function is called once, when the Service is
// created, and every rebuild starts from a copy of the resulting tree. It can be applied multiple times.
func WithRoutes(fn func(b *Builder) error) Option {
	return optionFunc(func(s sealedOption) error {
		if fn == nil {
			return fmt.Errorf("%w: routes function cannot be nil", ErrInvalidConfig)
		}
		s.svc.seeds = append(s.svc.seeds, fn)
		return nil
	})
}

// WithCollector registers a [CollectorFunc] run on every rebuild. Collectors with a higher priority run first.
// See also [Service.AddCollector].
func WithCollector(name string, priority int, fn CollectorFunc) Option {
	return optionFunc(func(s sealedOption) error {
		c, err := newCollector(name, priority, fn)
		if err != nil {
			return err
		}
		s.svc.collectors = append(s.svc.collectors, c)
		return nil
	})
}

// WithRebuildDelay sets the debounce window of [Service.RequestRebuild]. By default, [DefaultRebuildDelay] is used.
func WithRebuildDelay(d time.Duration) Option {
	return optionFunc(func(s sealedOption) error {
		if d <= 0 {
			return fmt.Errorf("%w: rebuild delay must be greater than zero", ErrInvalidConfig)
		}
		s.svc.delay = d
		return nil
	})
}

// WithLogger sets the logger used by the [Service] and by the [Router] it builds.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(s sealedOption) error {
		if logger == nil {
			return fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
		}
		s.svc.logger = logger
		return nil
	})
}

// WithPrettyLogs configures the Service with human-readable, colorized logging optimized for terminal output.
func WithPrettyLogs() Option {
	return optionFunc(func(s sealedOption) error {
		s.svc.logger = slog.New(slogpretty.DefaultHandler)
		return nil
	})
}

// WithMetrics registers the Service collectors on reg. Metrics are disabled by default.
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(s sealedOption) error {
		if reg == nil {
			return fmt.Errorf("%w: registerer cannot be nil", ErrInvalidConfig)
		}
		s.svc.reg = reg
		return nil
	})
}

// WithTracerProvider sets the provider of the tracer recording a span per rebuild. By default, the global
// provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(s sealedOption) error {
		if tp == nil {
			return fmt.Errorf("%w: tracer provider cannot be nil", ErrInvalidConfig)
		}
		s.svc.tp = tp
		return nil
	})
}

// WithNotFoundHandler register an http.Handler called by [Service.ServeHTTP] when the request is not routed.
// By default, [DefaultNotFoundHandler] is used.
func WithNotFoundHandler(handler http.Handler) Option {
	return optionFunc(func(s sealedOption) error {
		if handler == nil {
			return fmt.Errorf("%w: not found handler cannot be nil", ErrInvalidConfig)
		}
		s.svc.notFound = handler
		return nil
	})
}

// WithErrorHandler register an [ErrorHandlerFunc] called when a handler returns an error. By default,
// [DefaultErrorHandler] is used.
func WithErrorHandler(handler ErrorHandlerFunc) Option {
	return optionFunc(func(s sealedOption) error {
		if handler == nil {
			return fmt.Errorf("%w: error handler cannot be nil", ErrInvalidConfig)
		}
		s.svc.rcfg.errHandler = handler
		return nil
	})
}

// WithRecovery register a [RecoveryFunc] called when a terminal panics. By default, [DefaultHandleRecovery] is used.
func WithRecovery(handle RecoveryFunc) Option {
	return optionFunc(func(s sealedOption) error {
		if handle == nil {
			return fmt.Errorf("%w: recovery function cannot be nil", ErrInvalidConfig)
		}
		s.svc.rcfg.recovery = handle
		return nil
	})
}

// WithName sets the display name of a route. By default, a handler route is named after the handler function.
func WithName(name string) RouteOption {
	return optionFunc(func(s sealedOption) error {
		if name == "" {
			return fmt.Errorf("%w: empty route name", ErrInvalidConfig)
		}
		s.route.meta.name = name
		return nil
	})
}

// WithContentID attaches the identifier of the content served by a route.
func WithContentID(id string) RouteOption {
	return optionFunc(func(s sealedOption) error {
		s.route.meta.contentID = id
		return nil
	})
}

// WithEditURL attaches the URL of the editor of the content served by a route.
func WithEditURL(url string) RouteOption {
	return optionFunc(func(s sealedOption) error {
		s.route.meta.editURL = url
		return nil
	})
}

// WithController attaches the controller owning a handler. Two registrations of the same handler on the same route
// are equivalent only if their controller is equal. The controller must be comparable. A method value or a closure
// registered without a controller is never equivalent to another registration.
func WithController(controller any) RouteOption {
	return optionFunc(func(s sealedOption) error {
		if controller != nil && !reflect.TypeOf(controller).Comparable() {
			return fmt.Errorf("%w: controller is not comparable", ErrInvalidConfig)
		}
		s.route.controller = controller
		return nil
	})
}

// WithRedirectCode sets the status code of a redirect route. It must be a 3xx code.
func WithRedirectCode(code int) RouteOption {
	return optionFunc(func(s sealedOption) error {
		if code < http.StatusMultipleChoices || code > http.StatusPermanentRedirect {
			return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, ErrInvalidRedirect, code)
		}
		s.route.code = code
		return nil
	})
}
