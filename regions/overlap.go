// Copyright 2021 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package regions

import (
	"github.com/biogo/store/interval"
)

// ampInterval adapts a Region index to biogo's interval-tree element
// interface.  Intervals are half-open [Start, End).
type ampInterval struct {
	start, end int
	id         uintptr
}

func (iv ampInterval) Overlap(b interval.IntRange) bool {
	return iv.end > b.Start && iv.start < b.End
}

func (iv ampInterval) Range() interval.IntRange {
	return interval.IntRange{Start: iv.start, End: iv.end}
}

func (iv ampInterval) ID() uintptr { return iv.id }

// Overlapping returns every pair of regions on the same chromosome whose
// coordinate ranges intersect.  Each pair is reported once, in input order.
// Overlapping amplicons double-count bases in downstream per-base coverage,
// so callers surface these as warnings.
func Overlapping(regions []Region) [][2]Region {
	trees := map[string]*interval.IntTree{}
	var pairs [][2]Region
	for i, r := range regions {
		if r.End <= r.Start {
			continue
		}
		iv := ampInterval{start: r.Start, end: r.End, id: uintptr(i)}
		tree := trees[r.Chrom]
		if tree == nil {
			tree = &interval.IntTree{}
			trees[r.Chrom] = tree
		}
		for _, hit := range tree.Get(iv) {
			j := int(hit.ID())
			pairs = append(pairs, [2]Region{regions[j], r})
		}
		if err := tree.Insert(iv, false); err != nil {
			// Insert only fails on an inverted range, excluded above.
			panic(err)
		}
	}
	return pairs
}
