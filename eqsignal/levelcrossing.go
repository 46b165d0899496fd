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
	Level-crossing distribution.

	Cycle maxima and minima become two weighted histograms, one below
	the weighted mean level and one above it. Summing the low region
	from the bottom and the high region from the top gives, per level,
	how many cycles reach past it. The output carries a sentinel 1 at
	both ends and the mean level twice, the shape the log-scale step
	plot expects.
*/

package eqsignal

import (
	"github.com/galuszkm/RPC3/utils"
)

// DefaultLevelBins is the per-region bin count when the caller passes
// binCount <= 0.
const DefaultLevelBins = 256

// LevelCrossing builds the cumulative level-crossing curve of all
// cycles in rfList. Returns the cumulative counts and the matching
// load levels, both of length 2*binCount.
func LevelCrossing(rfList [][]float64, repetitions []float64, binCount int) (lcCum, lcLevel []float64, err error) {
	if binCount <= 0 {
		binCount = DefaultLevelBins
	}
	// damage is unused here, slope 1 keeps the table cheap
	table, err := ParseAllRainflowData(rfList, repetitions, 1)
	if err != nil {
		return nil, nil, err
	}
	n := table.Len()
	if n == 0 {
		return []float64{}, []float64{}, nil
	}

	// 2N samples: every cycle contributes its max and its min, each
	// carrying the cycle weight
	vals := make([]float64, 0, 2*n)
	weights := make([]float64, 0, 2*n)
	vals = append(vals, table.MaxOfCycle...)
	vals = append(vals, table.MinOfCycle...)
	weights = append(weights, table.CycleRepets...)
	weights = append(weights, table.CycleRepets...)

	sumW, sumVW := 0.0, 0.0
	min, max := vals[0], vals[0]
	for i, v := range vals {
		sumW += weights[i]
		sumVW += v * weights[i]
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sumVW / sumW

	lowEdges := utils.Linspace(min, mean, binCount)
	highEdges := utils.Linspace(mean, max, binCount)
	lowHist := weightedHistogram(vals, weights, lowEdges)
	highHist := weightedHistogram(vals, weights, highEdges)

	// low region accumulates bottom-up, high region top-down
	lowCum := make([]float64, len(lowHist))
	run := 0.0
	for i := 0; i < len(lowHist); i++ {
		run += lowHist[i]
		lowCum[i] = run
	}
	highCum := make([]float64, len(highHist))
	run = 0.0
	for i := len(highHist) - 1; i >= 0; i-- {
		run += highHist[i]
		highCum[i] = run
	}

	lcCum = make([]float64, 0, 2*binCount)
	lcCum = append(lcCum, 1)
	lcCum = append(lcCum, lowCum...)
	lcCum = append(lcCum, highCum...)
	lcCum = append(lcCum, 1)

	lcLevel = make([]float64, 0, 2*binCount)
	lcLevel = append(lcLevel, lowEdges...)
	lcLevel = append(lcLevel, highEdges...)
	return lcCum, lcLevel, nil
}

// weightedHistogram drops each sample's weight into its containing bin
// by direct width indexing; samples outside the edge span are skipped.
// edges has binCount entries, so binCount-1 bins come back.
func weightedHistogram(vals, weights, edges []float64) []float64 {
	bins := len(edges) - 1
	if bins <= 0 {
		return []float64{}
	}
	hist := make([]float64, bins)
	lo, hi := edges[0], edges[len(edges)-1]
	width := (hi - lo) / float64(bins)
	for i, v := range vals {
		if v < lo || v > hi {
			continue
		}
		var b int
		if width > 0 {
			b = int((v - lo) / width)
		}
		if b >= bins {
			b = bins - 1
		}
		hist[b] += weights[i]
	}
	return hist
}
