// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"time"
)

const verb = 4

// commonVerbs define the http methods served by a Router, in tree order.
var commonVerbs = [verb]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// Builder accumulates route registrations into a mutable tree and compiles it into an immutable [Router]. A Builder
// is NOT safe for concurrent use: a new Builder is always obtained with [Builder.Clone] before mutation, so the tree
// of a live Router is never affected by an ongoing registration.
type Builder struct {
	lookup   *TokenLookup
	roots    [verb]*builderNode
	size     int
	consumed bool
}

// builderNode is the mutable mirror of a routing tree node.
type builderNode struct {
	parent   *builderNode
	behavior *behavior
	key      string
	children []*builderNode
	capture  bool
}

// behavior is the terminal behavior assigned to a builder node. A behavior is immutable once assigned, so it is
// shared between cloned builders.
type behavior struct {
	compile    compileFunc
	controller any
	meta       routeMeta
	pattern    string
	to         string
	handlerID  uintptr
	code       int
	typ        NodeType
	// opaque is set when handlerID alone does not identify the handler target.
	opaque bool
}

// compileFunc compiles the endpoint of a terminal method. It runs once per Build.
type compileFunc func(ri routeInfo) (endpoint, error)

// routeInfo describes the route being compiled.
type routeInfo struct {
	method  string
	pattern string
	names   []string
}

// NewBuilder returns an empty Builder interning rewrite tokens into lookup. If lookup is nil, a new table is
// allocated.
func NewBuilder(lookup *TokenLookup) *Builder {
	if lookup == nil {
		lookup = NewTokenLookup()
	}
	b := &Builder{lookup: lookup}
	for i := range commonVerbs {
		b.roots[i] = &builderNode{key: commonVerbs[i]}
	}
	return b
}

// Clone returns a deep copy of the Builder. Further mutations to either builder are independent.
func (b *Builder) Clone() *Builder {
	cp := &Builder{
		lookup: b.lookup,
		size:   b.size,
	}
	for i := range b.roots {
		cp.roots[i] = b.roots[i].clone(nil)
	}
	return cp
}

func (n *builderNode) clone(parent *builderNode) *builderNode {
	cp := &builderNode{
		parent:   parent,
		behavior: n.behavior,
		key:      n.key,
		capture:  n.capture,
	}
	if len(n.children) > 0 {
		cp.children = make([]*builderNode, len(n.children))
		for i := range n.children {
			cp.children[i] = n.children[i].clone(cp)
		}
	}
	return cp
}

// Len returns the number of registered terminals.
func (b *Builder) Len() int {
	return b.size
}

// Handle registers a plain handler for the given method and route pattern. If an error occurs, it returns one of
// the following:
//   - [ErrUnsupportedMethod]: If the method is not GET, POST, PUT or DELETE.
//   - [ErrInvalidRoute]: If the pattern is malformed.
//   - [ErrTooManyTokens]: If the pattern declares more than [MaxTokenCount] tokens.
//   - [ErrAmbiguousToken]: If a token with a different name is registered at the same position.
//   - [ErrRouteExist]: If a non-equivalent terminal is already registered for this route.
func (b *Builder) Handle(method, pattern string, handler HandlerFunc, opts ...RouteOption) error {
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrInvalidRoute)
	}
	return b.addMethod(method, pattern, reflect.ValueOf(handler).Pointer(), func(ri routeInfo) (endpoint, error) {
		return handlerEndpoint(handler), nil
	}, opts)
}

// MustHandle is a convenience wrapper for [Builder.Handle] that panics on error.
func (b *Builder) MustHandle(method, pattern string, handler HandlerFunc, opts ...RouteOption) {
	if err := b.Handle(method, pattern, handler, opts...); err != nil {
		panic(err)
	}
}

// AddRedirect registers a redirect from the given route pattern to the target URL. By default, the redirect uses
// the http.StatusMovedPermanently code (see [WithRedirectCode]).
func (b *Builder) AddRedirect(method, from, to string, opts ...RouteOption) error {
	if to == "" {
		return fmt.Errorf("%w: empty redirect target", ErrInvalidRoute)
	}
	cfg, err := newRouteConfig(opts)
	if err != nil {
		return err
	}
	if cfg.meta.name == "" {
		cfg.meta.name = "redirect " + to
	}
	return b.assign(method, from, &behavior{
		typ:     TerminalRedirectNode,
		pattern: from,
		to:      to,
		code:    cfg.code,
		meta:    cfg.meta,
	})
}

// AddRewrite registers a rewrite from the given route pattern to a concrete target path. The target is resolved
// when the Builder is built and must exist in the same method tree. When a request reaches the rewrite, routing
// continues from the target node and every token captured so far is replaced by the tokens of the target path.
func (b *Builder) AddRewrite(method, from, to string, opts ...RouteOption) error {
	if _, err := parseTarget(to); err != nil {
		return err
	}
	cfg, err := newRouteConfig(opts)
	if err != nil {
		return err
	}
	if cfg.meta.name == "" {
		cfg.meta.name = "rewrite " + to
	}
	return b.assign(method, from, &behavior{
		typ:     TerminalRewriteNode,
		pattern: from,
		to:      to,
		meta:    cfg.meta,
	})
}

// Has returns true if a terminal is registered for exactly this method and route pattern.
func (b *Builder) Has(method, pattern string) bool {
	idx := methodIndex(method)
	if idx < 0 {
		return false
	}
	segments, _, err := parsePattern(pattern)
	if err != nil {
		return false
	}

	current := b.roots[idx]
	for _, seg := range segments {
		current = current.find(seg)
		if current == nil {
			return false
		}
	}
	return current.behavior != nil
}

func (b *Builder) addMethod(method, pattern string, id uintptr, compile compileFunc, opts []RouteOption) error {
	cfg, err := newRouteConfig(opts)
	if err != nil {
		return err
	}
	if cfg.meta.name == "" {
		cfg.meta.name = funcName(id)
	}
	return b.assign(method, pattern, &behavior{
		typ:        TerminalNode,
		pattern:    pattern,
		compile:    compile,
		controller: cfg.controller,
		handlerID:  id,
		opaque:     cfg.controller == nil && isBoundFunc(id),
		meta:       cfg.meta,
	})
}

// assign walks the tree, creating missing nodes, and assigns the terminal behavior to the last one.
func (b *Builder) assign(method, pattern string, bhv *behavior) error {
	if b.consumed {
		return ErrBuilderConsumed
	}

	idx := methodIndex(method)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	segments, _, err := parsePattern(pattern)
	if err != nil {
		return err
	}

	// Validate the whole path before mutating anything, so a failed registration leaves the tree untouched.
	current := b.roots[idx]
	missing := -1
	for i, seg := range segments {
		if current.behavior != nil && current.behavior.typ == TerminalRewriteNode {
			return b.conflict(method, pattern, bhv, current.behavior)
		}
		if seg.capture {
			if wc := current.wildcard(); wc != nil && wc.key != seg.text {
				return &AmbiguousTokenError{Method: method, Route: pattern, Token: seg.text, Existing: wc.key}
			}
		}
		next := current.find(seg)
		if next == nil {
			missing = i
			break
		}
		current = next
	}

	if missing < 0 {
		if current.behavior != nil {
			if current.behavior.equivalent(bhv) {
				return nil
			}
			return b.conflict(method, pattern, bhv, current.behavior)
		}
		if bhv.typ == TerminalRewriteNode && len(current.children) > 0 {
			return fmt.Errorf("%w: [%s] %s: rewrite cannot be assigned to a node with children", ErrRouteExist, method, pattern)
		}
		current.behavior = bhv
		b.size++
		return nil
	}

	for _, seg := range segments[missing:] {
		current = current.addOrGet(seg)
	}
	current.behavior = bhv
	b.size++
	return nil
}

func (b *Builder) conflict(method, pattern string, bhv, existing *behavior) error {
	return &RouteConflictError{
		Method:   method,
		Route:    pattern,
		New:      bhv.describe(),
		Existing: existing.describe() + " " + existing.pattern,
	}
}

func (n *builderNode) find(seg segment) *builderNode {
	for _, child := range n.children {
		if child.capture == seg.capture && child.key == seg.text {
			return child
		}
	}
	return nil
}

func (n *builderNode) wildcard() *builderNode {
	for _, child := range n.children {
		if child.capture {
			return child
		}
	}
	return nil
}

// addOrGet returns the child matching seg, creating it if needed. For a capture child, key holds the token name.
func (n *builderNode) addOrGet(seg segment) *builderNode {
	if child := n.find(seg); child != nil {
		return child
	}
	child := &builderNode{
		parent:  n,
		key:     seg.text,
		capture: seg.capture,
	}
	n.children = append(n.children, child)
	return child
}

// tokenNames returns the token names declared from the root to n.
func (n *builderNode) tokenNames() []string {
	var names []string
	for current := n; current != nil; current = current.parent {
		if current.capture {
			names = append(names, current.key)
		}
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// fullRoute returns the canonical route pattern from the root to n.
func (n *builderNode) fullRoute() string {
	var parts []string
	for current := n; current.parent != nil; current = current.parent {
		if current.capture {
			parts = append(parts, "{"+current.key+"}")
		} else {
			parts = append(parts, current.key)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

func (bhv *behavior) equivalent(other *behavior) bool {
	if bhv.typ != other.typ {
		return false
	}
	switch bhv.typ {
	case TerminalNode:
		if bhv.opaque || other.opaque {
			return false
		}
		return bhv.handlerID == other.handlerID && sameController(bhv.controller, other.controller)
	case TerminalRedirectNode:
		return bhv.to == other.to && bhv.code == other.code
	case TerminalRewriteNode:
		return bhv.to == other.to
	}
	return false
}

func (bhv *behavior) describe() string {
	switch bhv.typ {
	case TerminalRedirectNode:
		return "redirect to " + bhv.to
	case TerminalRewriteNode:
		return "rewrite to " + bhv.to
	default:
		return "handler " + bhv.meta.name
	}
}

func sameController(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

var closureName = regexp.MustCompile(`\.func\d+`)

// isBoundFunc reports whether the function at pc carries state its code pointer does not reflect. Every method
// value of a given method shares the same "-fm" wrapper, and every instance of a closure shares the same code.
func isBoundFunc(pc uintptr) bool {
	name := funcName(pc)
	return strings.HasSuffix(name, "-fm") || closureName.MatchString(name)
}

func funcName(pc uintptr) string {
	if fn := runtime.FuncForPC(pc); fn != nil {
		return fn.Name()
	}
	return "unknown"
}

// Build compiles the Builder into an immutable Router using the default configuration. A Builder can only be
// built once. Build returns [ErrRewriteTarget] if a rewrite target does not exist, or any error raised while
// compiling an endpoint.
func (b *Builder) Build() (*Router, error) {
	return b.build(defaultRouterConfig())
}

type pendingRewrite struct {
	n   *node
	bhv *behavior
	idx int
}

func (b *Builder) build(cfg routerConfig) (*Router, error) {
	if b.consumed {
		return nil, ErrBuilderConsumed
	}
	b.consumed = true

	rt := newRouter(b.lookup, cfg)
	var rewrites []pendingRewrite
	for i := range b.roots {
		root, err := b.compileNode(i, b.roots[i], &rewrites)
		if err != nil {
			return nil, err
		}
		root.typ = RootNode
		root.key = commonVerbs[i]
		rt.roots[i] = root
	}

	for _, pr := range rewrites {
		if err := b.resolveRewrite(rt.roots[pr.idx], pr); err != nil {
			return nil, err
		}
	}

	rt.size = b.size
	rt.builtAt = time.Now()
	return rt, nil
}

func (b *Builder) compileNode(idx int, bn *builderNode, rewrites *[]pendingRewrite) (*node, error) {
	children := make([]*node, 0, len(bn.children))
	for _, child := range bn.children {
		n, err := b.compileNode(idx, child, rewrites)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}

	n := newNode(bn.key, bn.capture, children)
	if bn.capture {
		n.key = ""
		n.tokenName = bn.key
	}
	if bn.parent == nil {
		n.route = "/"
		return n, nil
	}
	n.route = bn.fullRoute()
	n.names = bn.tokenNames()

	bhv := bn.behavior
	if bhv == nil {
		return n, nil
	}

	n.typ = bhv.typ
	meta := bhv.meta
	n.meta = &meta
	switch bhv.typ {
	case TerminalNode:
		ri := routeInfo{method: commonVerbs[idx], pattern: n.route, names: n.names}
		ep, err := bhv.compile(ri)
		if err != nil {
			return nil, fmt.Errorf("[%s] %s: %w", ri.method, ri.pattern, err)
		}
		n.terminal = &methodTerminal{ep: ep}
	case TerminalRedirectNode:
		n.terminal = &redirectTerminal{to: bhv.to, code: bhv.code}
	case TerminalRewriteNode:
		*rewrites = append(*rewrites, pendingRewrite{n: n, bhv: bhv, idx: idx})
	}
	return n, nil
}

// resolveRewrite walks the built tree along the rewrite target, exact children first, and bakes the captured
// values as interned tokens.
func (b *Builder) resolveRewrite(root *node, pr pendingRewrite) error {
	parts, err := parseTarget(pr.bhv.to)
	if err != nil {
		return err
	}

	var baked bakedTokens
	current := root
	for _, part := range parts {
		next := current.getChild(part)
		if next == nil {
			return fmt.Errorf("%w: [%s] %s: target %s is not registered", ErrRewriteTarget, commonVerbs[pr.idx], pr.bhv.pattern, pr.bhv.to)
		}
		if next.rewrite != nil || next.typ == TerminalRewriteNode {
			return fmt.Errorf("%w: [%s] %s: target %s resolves through another rewrite", ErrRewriteTarget, commonVerbs[pr.idx], pr.bhv.pattern, pr.bhv.to)
		}
		if next.capture {
			baked.markers[baked.n] = lookupMarker(b.lookup.Add(part))
			baked.n++
		}
		current = next
	}
	if current.terminal == nil {
		return fmt.Errorf("%w: [%s] %s: target %s is not a terminal", ErrRewriteTarget, commonVerbs[pr.idx], pr.bhv.pattern, pr.bhv.to)
	}

	pr.n.rewrite = &rewrite{
		target: current,
		to:     pr.bhv.to,
		tokens: baked,
	}
	return nil
}
