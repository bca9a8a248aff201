// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	netcontext "context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
)

// Context holds the request being served by a terminal, its captured tokens, and allows interaction with the
// ResponseWriter. The Context is pooled by the Router: its lifetime is limited to the handler execution.
type Context struct {
	w           ResponseWriter
	req         *http.Request
	node        *node
	router      *Router
	cachedQuery url.Values
	rec         recorder
	tokens      Tokens
}

func (c *Context) reset(w http.ResponseWriter, r *http.Request) {
	c.req = r
	c.cachedQuery = nil
	c.rec.reset(w)
	if r.ProtoMajor == 2 {
		switch w.(type) {
		case interface {
			http.Flusher
			http.Pusher
		}:
			c.w = h2Writer{&c.rec}
		case http.Flusher:
			c.w = flushWriter{&c.rec}
		default:
			c.w = &c.rec
		}
		return
	}

	switch w.(type) {
	case interface {
		http.Flusher
		http.Hijacker
		io.ReaderFrom
	}:
		c.w = h1Writer{&c.rec}
	case http.Flusher:
		c.w = flushWriter{&c.rec}
	default:
		c.w = &c.rec
	}
}

// release drops every reference to the request, so a pooled Context does not retain it.
func (c *Context) release() {
	c.req = nil
	c.w = nil
	c.node = nil
	c.cachedQuery = nil
	c.rec.ResponseWriter = nil
	c.tokens = Tokens{}
}

// Request returns the current *http.Request.
func (c *Context) Request() *http.Request {
	return c.req
}

// Writer returns the ResponseWriter.
func (c *Context) Writer() ResponseWriter {
	return c.w
}

// Ctx returns the context associated with the current request.
func (c *Context) Ctx() netcontext.Context {
	return c.req.Context()
}

// Router returns the Router serving the request.
func (c *Context) Router() *Router {
	return c.router
}

// Route returns the registered route pattern of the matched terminal. When the request was rewritten, this is
// the route of the rewrite target.
func (c *Context) Route() string {
	return c.node.route
}

// Tokens returns the tokens captured while routing the request.
func (c *Context) Tokens() *Tokens {
	return &c.tokens
}

// Token returns the value of the token declared with the given name, or an empty string if the route has no
// such token.
func (c *Context) Token(name string) string {
	for i, n := range c.node.names {
		if n == name && i < c.tokens.Len() {
			return c.tokens.Get(i)
		}
	}
	return ""
}

// TokenNames returns the token names of the matched route, in declaration order.
func (c *Context) TokenNames() TokenNames {
	return c.node.names
}

// QueryParams parses RawQuery and returns the corresponding values. The parsed result is cached.
func (c *Context) QueryParams() url.Values {
	if c.cachedQuery == nil {
		c.cachedQuery = c.req.URL.Query()
	}
	return c.cachedQuery
}

// QueryParam returns the first value associated with the given key.
func (c *Context) QueryParam(name string) string {
	return c.QueryParams().Get(name)
}

// SetHeader sets the response header for the given key to the specified value.
func (c *Context) SetHeader(key, value string) {
	c.w.Header().Set(key, value)
}

// Header retrieves the value of the request header for the given key.
func (c *Context) Header(key string) string {
	return c.req.Header.Get(key)
}

// String sends a formatted string with the specified status code.
func (c *Context) String(code int, format string, values ...any) (err error) {
	if c.w.Header().Get(HeaderContentType) == "" {
		c.w.Header().Set(HeaderContentType, MIMETextPlainCharsetUTF8)
	}
	c.w.WriteHeader(code)
	_, err = fmt.Fprintf(c.w, format, values...)
	return
}

// JSON encodes v as JSON and sends it with the specified status code.
func (c *Context) JSON(code int, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(code, MIMEApplicationJSON, buf)
}

// Blob sends a byte slice with the specified status code and content type.
func (c *Context) Blob(code int, contentType string, buf []byte) (err error) {
	c.w.Header().Set(HeaderContentType, contentType)
	c.w.WriteHeader(code)
	_, err = c.w.Write(buf)
	return
}

// Stream sends data from an io.Reader with the specified status code and content type.
func (c *Context) Stream(code int, contentType string, r io.Reader) (err error) {
	c.w.Header().Set(HeaderContentType, contentType)
	c.w.WriteHeader(code)
	_, err = io.Copy(c.w, r)
	return
}

// Redirect sends an HTTP redirect response with the given status code and URL.
func (c *Context) Redirect(code int, url string) error {
	if code < http.StatusMultipleChoices || code > http.StatusPermanentRedirect {
		return ErrInvalidRedirect
	}
	http.Redirect(c.w, c.req, url, code)
	return nil
}

// TokenNames is the ordered list of token names declared by a route.
type TokenNames []string

// Index returns the position of the token name, or -1.
func (n TokenNames) Index(name string) int {
	for i := range n {
		if n[i] == name {
			return i
		}
	}
	return -1
}
