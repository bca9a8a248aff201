// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrRouteExist         = errors.New("route already registered")
	ErrInvalidRoute       = errors.New("invalid route")
	ErrUnsupportedMethod  = errors.New("unsupported http method")
	ErrTooManyTokens      = errors.New("too many tokens")
	ErrAmbiguousToken     = errors.New("ambiguous token")
	ErrRewriteTarget      = errors.New("invalid rewrite target")
	ErrBuilderConsumed    = errors.New("builder already built")
	ErrInvalidBinder      = errors.New("invalid route binder")
	ErrBodyNotAllowed     = errors.New("request body not allowed")
	ErrAsyncOutput        = errors.New("asynchronous output not allowed")
	ErrEntityCollection   = errors.New("entity collection output not allowed")
	ErrUnsupportedOutput  = errors.New("unsupported output type")
	ErrInvalidConfig      = errors.New("invalid config")
	ErrInvalidRedirect    = errors.New("invalid redirect code")
	ErrDiscardedResponse  = errors.New("discarded response writer")
	ErrServiceClosed      = errors.New("service closed")
	ErrRebuildInterrupted = errors.New("rebuild interrupted")
)

// RouteConflictError is returned when a terminal is registered on a node already holding a terminal
// that is not equivalent.
type RouteConflictError struct {
	Method   string
	Route    string
	New      string
	Existing string
}

func (e *RouteConflictError) Error() string {
	var sb strings.Builder
	sb.WriteString("route already registered: new ")
	sb.WriteString(e.New)
	sb.WriteString(" [")
	sb.WriteString(e.Method)
	sb.WriteString("] ")
	sb.WriteString(e.Route)
	sb.WriteString(" conflicts with ")
	sb.WriteString(e.Existing)
	return sb.String()
}

// Unwrap returns the sentinel value [ErrRouteExist].
func (e *RouteConflictError) Unwrap() error {
	return ErrRouteExist
}

// AmbiguousTokenError is returned when two routes declare a capture token with different names at the same
// position of the tree.
type AmbiguousTokenError struct {
	Method   string
	Route    string
	Token    string
	Existing string
}

func (e *AmbiguousTokenError) Error() string {
	return fmt.Sprintf("ambiguous token: [%s] %s declares {%s} where {%s} is already registered", e.Method, e.Route, e.Token, e.Existing)
}

// Unwrap returns the sentinel value [ErrAmbiguousToken].
func (e *AmbiguousTokenError) Unwrap() error {
	return ErrAmbiguousToken
}

// HTTPError is an error carrying the status code written to the client when returned by a handler.
type HTTPError struct {
	Err  error
	Code int
}

// NewHTTPError returns an HTTPError with the given status code. If err is nil, the status text is used.
func NewHTTPError(code int, err error) *HTTPError {
	if err == nil {
		err = errors.New(http.StatusText(code))
	}
	return &HTTPError{Code: code, Err: err}
}

func (e *HTTPError) Error() string {
	return e.Err.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func newInvalidRouteErr(pattern, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidRoute, pattern, reason)
}
