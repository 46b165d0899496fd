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
	Equivalent block-damage signal.

	The full rainflow histogram is compressed into a handful of blocks
	that carry the same Miner sum. Boundaries come from a maximum
	rectangle search over the range-sorted table, then block ranges are
	scaled down in small steps until the blocks hold at least the
	requested number of cycles, and finally block means are clipped so
	every block fits inside the signal envelope.
*/

package eqsignal

import (
	"errors"
	"math"
	"sort"

	logging "gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("eqsignal.builder")

// ErrInsufficientCycles reports an input histogram with fewer cycles
// than the requested floor.
var ErrInsufficientCycles = errors.New("eqsignal: input has fewer cycles than the requested minimum")

// ErrNoCycles reports an empty input histogram.
var ErrNoCycles = errors.New("eqsignal: no cycles in input")

// scaleStep is the per-iteration decrement of the range scale.
const scaleStep = 1e-4

// Row is one block of the equivalent signal.
type Row struct {
	Range         float64
	Mean          float64
	Repetition    float64
	PercentDamage float64
	BlockDamage   float64
	AdjustedMean  float64
}

// Build compresses the rainflow histograms in rfList into at most
// blocksNumber blocks whose summed repetitions reach minNumOfCycles
// and whose total damage equals the input Miner sum. Blocks return
// ordered by descending range.
func Build(rfList [][]float64, repetitions []float64, blocksNumber int, minNumOfCycles, slope float64) ([]Row, error) {
	table, err := ParseAllRainflowData(rfList, repetitions, slope)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, ErrNoCycles
	}
	if table.TotalRepets() < minNumOfCycles {
		return nil, ErrInsufficientCycles
	}
	table.SortByRange()
	totalDamage := table.TotalDamage()

	globalMin, globalMax := math.Inf(1), math.Inf(-1)
	for i := 0; i < table.Len(); i++ {
		if table.MinOfCycle[i] < globalMin {
			globalMin = table.MinOfCycle[i]
		}
		if table.MaxOfCycle[i] > globalMax {
			globalMax = table.MaxOfCycle[i]
		}
	}

	bounds := partition(table, blocksNumber)
	blocks := buildBlocks(table, bounds, totalDamage, slope)
	scaleBlocks(blocks, minNumOfCycles, slope, totalDamage, globalMin, globalMax)
	clipMeans(blocks)

	// highest range first
	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}
	return blocks, nil
}

// partition picks blocksNumber-1 interior boundaries by the maximum
// rectangle heuristic. It mutates table ranges: every split lifts the
// ranges below the cut by the rectangle height so later searches see
// the remaining area.
func partition(t *Table, blocksNumber int) []int {
	n := t.Len()
	maxRange := t.Range[n-1]
	// the -1 sentinel keeps row 0 inside the first (lo, hi] segment,
	// otherwise its damage would never reach a block
	bounds := []int{-1, n - 1}

	for it := 0; it < blocksNumber-1; it++ {
		best := math.Inf(-1)
		bestIdx, bestLo := -1, 0
		bestHeight := 0.0

		for b := 0; b+1 < len(bounds); b++ {
			lo, hi := bounds[b], bounds[b+1]
			dmg := 0.0
			for a := lo + 1; a <= hi; a++ {
				dmg += t.DamageOfCycle[a]
				s := dmg * (maxRange - t.Range[a])
				if s > best {
					best = s
					bestIdx = a
					bestLo = lo
					bestHeight = maxRange - t.Range[a]
				}
			}
		}
		if bestIdx < 0 {
			break
		}
		for i := bestLo + 1; i <= bestIdx; i++ {
			t.Range[i] += bestHeight
		}
		bounds = insertBound(bounds, bestIdx)
	}
	return bounds
}

// insertBound adds b keeping the list sorted; an already present
// boundary is not duplicated, it would only create an empty block.
func insertBound(bounds []int, b int) []int {
	pos := sort.SearchInts(bounds, b)
	if pos < len(bounds) && bounds[pos] == b {
		return bounds
	}
	bounds = append(bounds, 0)
	copy(bounds[pos+1:], bounds[pos:])
	bounds[pos] = b
	return bounds
}

// buildBlocks folds each boundary segment into one block row.
func buildBlocks(t *Table, bounds []int, totalDamage, slope float64) []Row {
	blocks := make([]Row, 0, len(bounds)-1)
	for b := 0; b+1 < len(bounds); b++ {
		lo, hi := bounds[b], bounds[b+1]
		blockDamage := 0.0
		meanSum := 0.0
		finalRange := 0.0
		cycles := 0
		for i := lo + 1; i <= hi; i++ {
			blockDamage += t.DamageOfCycle[i]
			finalRange = t.Range[i]
			meanSum += t.MaxOfCycle[i] - t.Range[i]/2
			cycles++
		}
		mean := 0.0
		if cycles > 0 {
			mean = meanSum / float64(cycles)
		}
		rep := 0.0
		if finalRange > 0 {
			rep = blockDamage / math.Pow(finalRange, slope)
		}
		perc := 0.0
		if totalDamage > 0 {
			perc = 100 * blockDamage / totalDamage
		}
		blocks = append(blocks, Row{
			Range:         finalRange,
			Mean:          mean,
			Repetition:    rep,
			PercentDamage: perc,
			BlockDamage:   blockDamage,
			AdjustedMean:  mean,
		})
	}
	return blocks
}

// scaleBlocks shrinks block ranges in scaleStep decrements until the
// summed repetitions clear the floor. The first block always scales;
// middle blocks scale only while they stay above the midpoint of the
// initial neighbouring ranges; the last block is pinned to the full
// signal envelope.
func scaleBlocks(blocks []Row, minNumOfCycles, slope, totalDamage, globalMin, globalMax float64) {
	snapshot := make([]Row, len(blocks))
	copy(snapshot, blocks)

	scale := 1.0
	iterations := 0
	for sumRepetitions(blocks) <= minNumOfCycles && scale > 0 {
		scale -= scaleStep
		iterations++

		blocks[0].Range *= scale
		for k := 1; k <= len(blocks)-2; k++ {
			candidate := blocks[k].Range * scale
			mid := (snapshot[k-1].Range + snapshot[k].Range) / 2
			if candidate >= mid {
				blocks[k].Range = candidate
			}
		}

		last := len(blocks) - 1
		blocks[last].Range = globalMax - globalMin
		blocks[last].Mean = globalMax
		blocks[last].AdjustedMean = globalMax - blocks[last].Range/2

		for k := range blocks {
			if blocks[k].Range > 0 {
				blocks[k].Repetition = blocks[k].BlockDamage / math.Pow(blocks[k].Range, slope)
			}
			if totalDamage > 0 {
				blocks[k].PercentDamage = 100 * blocks[k].BlockDamage / totalDamage
			}
		}
	}
	if iterations > 0 {
		log.Debug("range scaling converged after %d iterations, scale %.4f", iterations, scale)
	}
}

func sumRepetitions(blocks []Row) float64 {
	total := 0.0
	for _, b := range blocks {
		total += b.Repetition
	}
	return total
}

// clipMeans shifts block means so every block stays inside the
// envelope spanned by the last (largest) block.
func clipMeans(blocks []Row) {
	if len(blocks) == 0 {
		return
	}
	last := blocks[len(blocks)-1]
	signalMin := last.Mean - last.Range
	signalMax := last.Mean
	for k := range blocks {
		if blocks[k].AdjustedMean-blocks[k].Range/2 < signalMin {
			blocks[k].AdjustedMean = blocks[k].Range/2 + signalMin
		}
		if blocks[k].AdjustedMean+blocks[k].Range/2 > signalMax {
			blocks[k].AdjustedMean = signalMax - blocks[k].Range/2
		}
	}
}
