// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import "iter"

// NodeMetadata is a read-only description of a routing tree node, for tooling.
type NodeMetadata struct {
	Method      string   `json:"method"`
	Route       string   `json:"route"`
	Key         string   `json:"key"`
	DisplayName string   `json:"displayName,omitempty"`
	ContentID   string   `json:"contentId,omitempty"`
	EditURL     string   `json:"editUrl,omitempty"`
	Target      string   `json:"target,omitempty"`
	Type        NodeType `json:"type"`
	Depth       int      `json:"depth"`
	HasChildren bool     `json:"hasChildren"`
}

// Endpoint describes a terminal of the routing tree.
type Endpoint struct {
	Method    string   `json:"method"`
	Route     string   `json:"route"`
	Name      string   `json:"name"`
	ContentID string   `json:"contentId,omitempty"`
	Target    string   `json:"target,omitempty"`
	Type      NodeType `json:"type"`
}

// ForEachEndpoint calls fn for every terminal of the Router, method by method (GET, POST, PUT, DELETE) and
// depth-first within a method, until fn returns false.
func (rt *Router) ForEachEndpoint(fn func(ep Endpoint) bool) {
	for ep := range rt.Endpoints() {
		if !fn(ep) {
			return
		}
	}
}

// Endpoints returns a range iterator over every terminal of the Router. See [Router.ForEachEndpoint] for the
// iteration order.
func (rt *Router) Endpoints() iter.Seq[Endpoint] {
	return func(yield func(Endpoint) bool) {
		for i, root := range rt.roots {
			it := newIterator(root)
			for it.hasNextLeaf() {
				if !yield(newEndpoint(commonVerbs[i], it.node())) {
					return
				}
			}
		}
	}
}

// Metadata returns the metadata of every node of the tree of the given method, depth-first, the root excluded.
// It returns nil for an unsupported method.
func (rt *Router) Metadata(method string) []NodeMetadata {
	idx := methodIndex(method)
	if idx < 0 {
		return nil
	}

	var nodes []NodeMetadata
	it := newIterator(rt.roots[idx])
	for it.hasNext() {
		n := it.node()
		if n.typ == RootNode {
			continue
		}
		nodes = append(nodes, newNodeMetadata(method, n, it.depth))
	}
	return nodes
}

// Describe returns the metadata of the node registered for the given method and route pattern. Unlike
// [Router.Match], the pattern is resolved against the registered routes ({token} segments match capture nodes
// only) and intermediate nodes are described too.
func (rt *Router) Describe(method, pattern string) (NodeMetadata, bool) {
	idx := methodIndex(method)
	if idx < 0 {
		return NodeMetadata{}, false
	}
	segments, _, err := parsePattern(pattern)
	if err != nil {
		return NodeMetadata{}, false
	}

	current := rt.roots[idx]
	for _, seg := range segments {
		var next *node
		if seg.capture {
			next = current.wildcard
			if next != nil && next.tokenName != seg.text {
				return NodeMetadata{}, false
			}
		} else {
			next = current.getExact(seg.text)
		}
		if next == nil {
			return NodeMetadata{}, false
		}
		current = next
	}
	return newNodeMetadata(method, current, len(segments)), true
}

func newEndpoint(method string, n *node) Endpoint {
	ep := Endpoint{
		Method: method,
		Route:  n.route,
		Type:   n.typ,
	}
	if n.meta != nil {
		ep.Name = n.meta.name
		ep.ContentID = n.meta.contentID
	}
	ep.Target = n.target()
	return ep
}

func newNodeMetadata(method string, n *node, depth int) NodeMetadata {
	md := NodeMetadata{
		Method:      method,
		Type:        n.typ,
		HasChildren: len(n.children) > 0,
		Route:       n.route,
		Key:         n.label(),
		Target:      n.target(),
		Depth:       depth,
	}
	if n.meta != nil {
		md.DisplayName = n.meta.name
		md.ContentID = n.meta.contentID
		md.EditURL = n.meta.editURL
	}
	return md
}

// target returns the destination of a redirect or rewrite node.
func (n *node) target() string {
	if t, ok := n.terminal.(*redirectTerminal); ok {
		return t.to
	}
	if n.rewrite != nil {
		return n.rewrite.to
	}
	return ""
}
