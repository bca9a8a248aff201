// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// CollectorFunc contributes routes to a rebuild. It receives the Builder accumulated so far and returns the
// Builder passed to the next collector, usually the same one. Returning a nil Builder and a nil error rejects
// the rebuild: the live Router is kept and no error is reported. Returning an error aborts the rebuild.
type CollectorFunc func(ctx context.Context, b *Builder) (*Builder, error)

type collector struct {
	fn       CollectorFunc
	name     string
	priority int
	seq      int
}

func newCollector(name string, priority int, fn CollectorFunc) (*collector, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty collector name", ErrInvalidConfig)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: collector %s: nil function", ErrInvalidConfig, name)
	}
	return &collector{name: name, priority: priority, fn: fn}, nil
}

// sortCollectors orders collectors by descending priority. Collectors with the same priority run in
// registration order.
func sortCollectors(collectors []*collector) {
	slices.SortStableFunc(collectors, func(a, b *collector) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
}
