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
	Cumulative cycle / cumulative damage step curves.

	The outputs are step arrays for log-scale plotting: one leading
	sentinel element, then one partial sum per surviving range. The
	range array duplicates its first element so all three arrays align
	as a step function.
*/

package rainflow

import (
	"math"
)

// Cumulative filters rangeCounts with a gate, aggregates duplicates and
// produces cumulative cycle and cumulative damage-percent curves of
// length n+1, plus the total Miner-sum damage of the surviving set.
//
// The gate drops every pair whose range is not above
// maxRange * gatePercent / 100.
func Cumulative(rangeCounts []float64, slope, gatePercent float64) (rng, ncum, dcum []float64, totalDamage float64) {
	maxRange := 0.0
	for i := 0; i+1 < len(rangeCounts); i += 2 {
		if rangeCounts[i] > maxRange {
			maxRange = rangeCounts[i]
		}
	}
	threshold := maxRange * gatePercent / 100

	gated := make([]float64, 0, len(rangeCounts))
	for i := 0; i+1 < len(rangeCounts); i += 2 {
		if rangeCounts[i] > threshold {
			gated = append(gated, rangeCounts[i], rangeCounts[i+1])
		}
	}
	gated = CountUniqueRanges(gated)

	n := len(gated) / 2
	for i := 0; i < n; i++ {
		totalDamage += math.Pow(gated[2*i], slope) * gated[2*i+1]
	}

	rng = make([]float64, 0, n+1)
	ncum = make([]float64, 0, n+1)
	dcum = make([]float64, 0, n+1)
	ncum = append(ncum, 1)
	dcum = append(dcum, 0)
	if n > 0 {
		rng = append(rng, gated[0])
	} else {
		rng = append(rng, 0)
	}
	for i := 0; i < n; i++ {
		r, c := gated[2*i], gated[2*i+1]
		rng = append(rng, r)
		ncum = append(ncum, ncum[len(ncum)-1]+c)
		d := 0.0
		if totalDamage > 0 {
			d = 100 * math.Pow(r, slope) * c / totalDamage
		}
		dcum = append(dcum, dcum[len(dcum)-1]+d)
	}
	return rng, ncum, dcum, totalDamage
}
