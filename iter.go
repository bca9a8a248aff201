// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

// iterator walks a tree depth-first, children in tree order.
type iterator struct {
	stack   []stack
	current *node
	depth   int
}

type stack struct {
	edges []*node
	depth int
}

func newIterator(n *node) *iterator {
	return &iterator{
		stack: []stack{{edges: []*node{n}}},
	}
}

func (it *iterator) node() *node {
	return it.current
}

func (it *iterator) hasNextLeaf() bool {
	for it.hasNext() {
		if it.current.isLeaf() {
			return true
		}
	}
	return false
}

func (it *iterator) hasNext() bool {
	if len(it.stack) > 0 {
		n := len(it.stack)
		last := it.stack[n-1]
		elem := last.edges[0]

		if len(last.edges) > 1 {
			it.stack[n-1].edges = last.edges[1:]
		} else {
			it.stack = it.stack[:n-1]
		}

		if len(elem.children) > 0 {
			it.stack = append(it.stack, stack{edges: elem.children, depth: last.depth + 1})
		}

		it.current = elem
		it.depth = last.depth
		return true
	}

	it.current = nil
	it.depth = 0
	return false
}
