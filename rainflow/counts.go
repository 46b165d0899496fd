/*
Copyright 2020-2024 The RPC3 Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
	Range-count aggregation. Counts are float64 on purpose: a cycle
	weighted by a repetition count need not stay integral downstream.
*/

package rainflow

import (
	"math"
	"sort"

	"github.com/galuszkm/RPC3/utils"
)

// CountRangeCycles walks flat (start, end) cycle pairs and accumulates
// |end-start| into a range -> count map, each cycle weighted by
// repetitions. Output is a flat [range, count, ...] sequence sorted by
// range descending.
func CountRangeCycles(cycles []float64, repetitions float64) []float64 {
	counts := make(map[float64]float64)
	for i := 0; i+1 < len(cycles); i += 2 {
		r := math.Abs(cycles[i+1] - cycles[i])
		counts[r] += repetitions
	}
	return flattenSorted(counts)
}

// CountUniqueRanges re-aggregates a flat [range, count, ...] sequence,
// merging duplicate ranges, and re-sorts by range descending.
func CountUniqueRanges(rangeCounts []float64) []float64 {
	counts := make(map[float64]float64)
	for i := 0; i+1 < len(rangeCounts); i += 2 {
		counts[rangeCounts[i]] += rangeCounts[i+1]
	}
	return flattenSorted(counts)
}

func flattenSorted(counts map[float64]float64) []float64 {
	out := make(utils.RangeCountPairs, 0, 2*len(counts))
	for r, c := range counts {
		out = append(out, r, c)
	}
	sort.Sort(out)
	return out
}
