// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Router is an immutable routing tree compiled by a [Builder]. It is safe for concurrent use by multiple
// goroutines without any coordination: no node is ever mutated after Build.
type Router struct {
	builtAt time.Time
	lookup  *TokenLookup
	cfg     routerConfig
	ctx     sync.Pool
	id      string
	roots   [verb]*node
	size    int
}

type routerConfig struct {
	logger     *slog.Logger
	errHandler ErrorHandlerFunc
	recovery   RecoveryFunc
}

func defaultRouterConfig() routerConfig {
	return routerConfig{
		logger:     slog.New(defaultHandler),
		errHandler: DefaultErrorHandler,
		recovery:   DefaultHandleRecovery,
	}
}

func newRouter(lookup *TokenLookup, cfg routerConfig) *Router {
	rt := &Router{
		lookup: lookup,
		cfg:    cfg,
		id:     uuid.NewString(),
	}
	rt.ctx = sync.Pool{
		New: func() any {
			return rt.allocateContext()
		},
	}
	return rt
}

// Match describes the result of a routing pass.
type Match struct {
	Tokens Tokens
	Route  string
	Type   NodeType
}

// terminal is the compiled behavior of a leaf.
type terminal interface {
	run(c *Context)
}

type methodTerminal struct {
	ep endpoint
}

func (t *methodTerminal) run(c *Context) {
	if err := t.ep.serve(c); err != nil {
		c.router.cfg.errHandler(c, err)
	}
}

type redirectTerminal struct {
	to   string
	code int
}

func (t *redirectTerminal) run(c *Context) {
	http.Redirect(c.w, c.req, t.to, t.code)
}

// HandleRequest routes the request and runs the matched terminal. It returns false if the method is not routed
// or if no terminal matches the path, in which case nothing is written and the caller is responsible for the
// 404 response. Errors returned by a handler do not change the result: the request is handled.
func (rt *Router) HandleRequest(w http.ResponseWriter, r *http.Request) bool {
	idx := methodIndex(r.Method)
	if idx < 0 {
		return false
	}

	path := r.URL.Path
	if len(r.URL.RawPath) > 0 {
		// Using RawPath to prevent unintended match (e.g. /search/a%2Fb/1)
		path = r.URL.RawPath
	}

	n, tokens := rt.lookupPath(idx, path)
	if n == nil || n.terminal == nil {
		return false
	}

	c := rt.ctx.Get().(*Context)
	c.reset(w, r)
	c.tokens = tokens
	c.node = n
	rt.run(c, n.terminal)
	c.release()
	rt.ctx.Put(c)
	return true
}

func (rt *Router) run(c *Context, t terminal) {
	defer func() {
		if err := recover(); err != nil {
			handlePanic(c, err)
		}
	}()
	t.run(c)
}

// Match performs a routing pass for the given method and path without running the matched terminal. It returns
// false if the path does not resolve to a terminal.
func (rt *Router) Match(method, path string) (Match, bool) {
	idx := methodIndex(method)
	if idx < 0 {
		return Match{}, false
	}
	n, tokens := rt.lookupPath(idx, path)
	if n == nil || n.terminal == nil {
		return Match{}, false
	}
	return Match{Route: n.route, Type: n.typ, Tokens: tokens}, true
}

// lookupPath walks the tree of the method at index idx. It returns the node reached once the path is exhausted,
// or nil if a segment does not match.
func (rt *Router) lookupPath(idx int, path string) (*node, Tokens) {
	path = NormalizePath(path)
	tokens := Tokens{lookup: rt.lookup, path: path}

	current := rt.roots[idx]
	start := 0
	for {
		end := strings.IndexByte(path[start:], slashDelim)
		last := end < 0
		var seg string
		if last {
			seg = path[start:]
		} else {
			seg = path[start : start+end]
		}

		child := current.getChild(seg)
		if child == nil {
			return nil, tokens
		}

		switch {
		case child.rewrite != nil:
			tokens.replace(&child.rewrite.tokens)
			child = child.rewrite.target
		case child.capture:
			if !tokens.push(spanMarker(start, len(seg))) {
				return nil, tokens
			}
		}

		current = child
		if last {
			return current, tokens
		}
		start += end + 1
	}
}

// ID returns the unique identifier of this build.
func (rt *Router) ID() string {
	return rt.id
}

// BuiltAt returns the time at which the Router was built.
func (rt *Router) BuiltAt() time.Time {
	return rt.builtAt
}

// Len returns the number of registered terminals.
func (rt *Router) Len() int {
	return rt.size
}

// Lookup returns the token lookup table shared by this Router.
func (rt *Router) Lookup() *TokenLookup {
	return rt.lookup
}

func (rt *Router) String() string {
	var sb strings.Builder
	for _, root := range rt.roots {
		if len(root.children) > 0 {
			sb.WriteString(root.String())
		}
	}
	return sb.String()
}

func (rt *Router) allocateContext() *Context {
	return &Context{router: rt}
}
