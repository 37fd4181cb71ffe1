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

package coverage

import (
	"math"
	"sort"
)

// StatsRow summarizes the coverage of one (sample, feature) group.
type StatsRow struct {
	Sample  string
	Feature string
	// Min and Max are the extreme depths observed across the group.
	Min int
	Max int
	// Breadth is the percentage of bases whose depth strictly exceeds the
	// threshold, rounded to two decimals.  -1 when no threshold was supplied
	// (the sentinel for "undefined", distinct from 0% covered).
	Breadth float64
}

// Percentage returns 100*part/whole rounded to two decimal places, or -1
// when whole is not positive ("undefined" rather than zero).
func Percentage(part, whole int) float64 {
	if whole <= 0 {
		return -1
	}
	return math.Round(100*float64(part)/float64(whole)*100) / 100
}

type groupKey struct {
	sample, feature string
}

type groupAgg struct {
	min, max int
	n, above int
}

// Aggregate groups the records by (sample, feature) and computes min depth,
// max depth and, when covThreshold > 0, the percentage of bases with depth
// strictly above the threshold, in a single pass.  One row is produced per
// distinct group; rows are sorted by sample, then feature.  A threshold <= 0
// means no threshold: Breadth is set to the -1 sentinel on every row.
func Aggregate(recs []Record, covThreshold int) []StatsRow {
	groups := map[groupKey]*groupAgg{}
	for _, rec := range recs {
		key := groupKey{rec.Sample, rec.Feature}
		agg := groups[key]
		if agg == nil {
			agg = &groupAgg{min: rec.Coverage, max: rec.Coverage}
			groups[key] = agg
		}
		if rec.Coverage < agg.min {
			agg.min = rec.Coverage
		}
		if rec.Coverage > agg.max {
			agg.max = rec.Coverage
		}
		agg.n++
		if covThreshold > 0 && rec.Coverage > covThreshold {
			agg.above++
		}
	}

	rows := make([]StatsRow, 0, len(groups))
	for key, agg := range groups {
		row := StatsRow{
			Sample:  key.sample,
			Feature: key.feature,
			Min:     agg.min,
			Max:     agg.max,
			Breadth: -1,
		}
		if covThreshold > 0 {
			row.Breadth = Percentage(agg.above, agg.n)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Sample != rows[j].Sample {
			return rows[i].Sample < rows[j].Sample
		}
		return rows[i].Feature < rows[j].Feature
	})
	return rows
}
