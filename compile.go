// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"net/http"
	"reflect"
)

// HandlerFunc is a plain handler. It writes the response through the [Context] and returns an error to let the
// router reply with an error response (see [HTTPError]).
//
// HandlerFunc functions should be thread-safe, as they will be called concurrently.
type HandlerFunc func(c *Context) error

// Handler is a typed handler. Route-bound tokens are bound into params, the request body (POST and PUT only) is
// decoded into body, and the returned output is serialized by a serializer selected when the route is built.
// Use [NoParams] and [NoBody] for handlers that do not need them.
//
// Handler functions should be thread-safe, as they will be called concurrently.
type Handler[P, B, O any] func(c *Context, params P, body B) (O, error)

// NoParams is the params type of handlers without route-bound tokens. Routes using it have no binder.
type NoParams struct{}

// NoBody is the body type of handlers that do not read a request payload. Routes using it have no body loader.
type NoBody struct{}

// endpoint is the compiled form of a terminal method.
type endpoint interface {
	serve(c *Context) error
}

type handlerEndpoint HandlerFunc

func (h handlerEndpoint) serve(c *Context) error {
	return h(c)
}

// compiledEndpoint holds the functions resolved at build time for a typed handler. A nil bind or load means the
// stage is skipped.
type compiledEndpoint[P, B, O any] struct {
	bind   func(tokens *Tokens, params *P) error
	load   func(r *http.Request, body *B) error
	invoke Handler[P, B, O]
	write  func(c *Context, out O) error
}

func (e *compiledEndpoint[P, B, O]) serve(c *Context) error {
	var params P
	if e.bind != nil {
		if err := e.bind(&c.tokens, &params); err != nil {
			return NewHTTPError(http.StatusBadRequest, err)
		}
	}

	var body B
	if e.load != nil {
		if err := e.load(c.req, &body); err != nil {
			return err
		}
	}

	out, err := e.invoke(c, params, body)
	if err != nil {
		return err
	}
	return e.write(c, out)
}

// Add registers a typed handler for the given method and route pattern. Besides the errors returned by
// [Builder.Handle], building the route fails with:
//   - [ErrInvalidBinder]: If P cannot be bound from the route tokens.
//   - [ErrBodyNotAllowed]: If B is not [NoBody] on a GET or DELETE route.
//   - [ErrAsyncOutput], [ErrEntityCollection] or [ErrUnsupportedOutput]: If O has no serialization strategy.
func Add[P, B, O any](b *Builder, method, pattern string, handler Handler[P, B, O], opts ...RouteOption) error {
	if handler == nil {
		return ErrInvalidRoute
	}
	return b.addMethod(method, pattern, reflect.ValueOf(handler).Pointer(), func(ri routeInfo) (endpoint, error) {
		return compileEndpoint(ri, handler)
	}, opts)
}

// MustAdd is a convenience wrapper for [Add] that panics on error.
func MustAdd[P, B, O any](b *Builder, method, pattern string, handler Handler[P, B, O], opts ...RouteOption) {
	if err := Add(b, method, pattern, handler, opts...); err != nil {
		panic(err)
	}
}

func compileEndpoint[P, B, O any](ri routeInfo, handler Handler[P, B, O]) (endpoint, error) {
	bind, err := compileBinder[P](ri)
	if err != nil {
		return nil, err
	}
	load, err := compileLoader[B](ri)
	if err != nil {
		return nil, err
	}
	write, err := compileSerializer[O]()
	if err != nil {
		return nil, err
	}
	return &compiledEndpoint[P, B, O]{
		bind:   bind,
		load:   load,
		invoke: handler,
		write:  write,
	}, nil
}
