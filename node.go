// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"fmt"
	"sort"
	"strings"
)

// NodeType describes the role of a node in the routing tree.
type NodeType uint8

const (
	// RootNode is the root of a method tree.
	RootNode NodeType = iota
	// IntermediateNode is an exact match or capture segment without terminal behavior.
	IntermediateNode
	// TerminalNode executes a compiled handler.
	TerminalNode
	// TerminalRedirectNode replies with a redirect.
	TerminalRedirectNode
	// TerminalRewriteNode teleports the routing pass to another node with a baked token set.
	TerminalRewriteNode
)

func (t NodeType) String() string {
	switch t {
	case RootNode:
		return "root"
	case IntermediateNode:
		return "intermediate"
	case TerminalNode:
		return "terminal"
	case TerminalRedirectNode:
		return "redirect"
	case TerminalRewriteNode:
		return "rewrite"
	default:
		return "unknown"
	}
}

func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *NodeType) UnmarshalText(text []byte) error {
	for typ := RootNode; typ <= TerminalRewriteNode; typ++ {
		if typ.String() == string(text) {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown node type %q", text)
}

// linearSearchThreshold is the number of exact children below which a simple loop beats a binary search.
const linearSearchThreshold = 8

// node is an immutable routing tree node. Once a Router is built, no node is ever mutated.
type node struct {
	// terminal is the behavior executed when the path ends on this node. Nil for intermediate nodes.
	terminal terminal

	// rewrite is non-nil for rewrite nodes. A rewrite node has no children and no terminal.
	rewrite *rewrite

	// wildcard is the single capture child, if any. It is also the last entry of children.
	wildcard *node

	meta *routeMeta

	// key is the exact text matched by this node. Empty for a capture node.
	key string

	// tokenName is the name of the captured token for a capture node.
	tokenName string

	// route is the full route pattern from the root to this node.
	route string

	// exact children sorted by key, followed by the capture child.
	children []*node

	// keys of the exact children, in the same order.
	childKeys []string

	// names of the tokens available when the routing pass ends on this node.
	names []string

	typ     NodeType
	capture bool
}

type rewrite struct {
	target *node
	to     string
	tokens bakedTokens
}

func newNode(key string, capture bool, children []*node) *node {
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].capture != children[j].capture {
			return !children[i].capture
		}
		return children[i].key < children[j].key
	})

	n := &node{
		key:      key,
		capture:  capture,
		children: children,
		typ:      IntermediateNode,
	}
	for _, child := range children {
		if child.capture {
			n.wildcard = child
			continue
		}
		n.childKeys = append(n.childKeys, child.key)
	}
	return n
}

// getChild returns the exact child matching seg, or the capture child if no exact child matches.
func (n *node) getChild(seg string) *node {
	if len(n.childKeys) <= linearSearchThreshold {
		for i := range n.childKeys {
			if n.childKeys[i] == seg {
				return n.children[i]
			}
		}
		return n.wildcard
	}

	i := sort.SearchStrings(n.childKeys, seg)
	if i < len(n.childKeys) && n.childKeys[i] == seg {
		return n.children[i]
	}
	return n.wildcard
}

// getExact returns the exact child matching seg, without falling back to the capture child.
func (n *node) getExact(seg string) *node {
	i := sort.SearchStrings(n.childKeys, seg)
	if i < len(n.childKeys) && n.childKeys[i] == seg {
		return n.children[i]
	}
	return nil
}

func (n *node) isLeaf() bool {
	return n.terminal != nil || n.rewrite != nil
}

func (n *node) label() string {
	if n.capture {
		return "{" + n.tokenName + "}"
	}
	return n.key
}

func (n *node) String() string {
	return n.string(0)
}

func (n *node) string(space int) string {
	sb := strings.Builder{}
	sb.WriteString(strings.Repeat(" ", space))
	if n.typ == RootNode {
		sb.WriteString("root:")
		sb.WriteString(n.key)
	} else {
		sb.WriteString("path: ")
		sb.WriteString(n.label())
	}
	if n.isLeaf() {
		sb.WriteString(" (")
		sb.WriteString(n.typ.String())
		if n.rewrite != nil {
			sb.WriteString(" -> ")
			sb.WriteString(n.rewrite.to)
		}
		sb.WriteString(")")
	}

	sb.WriteByte('\n')
	for _, child := range n.children {
		sb.WriteString(child.string(space + 2))
	}
	return sb.String()
}
