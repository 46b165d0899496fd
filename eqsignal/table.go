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
	Columnar rainflow table.

	Eight parallel float64 columns, one row per closed cycle from any
	input signal. Keeping the columns flat and contiguous is what makes
	the block partition and the histogram walks cheap; all row moves go
	through one permutation.
*/

package eqsignal

import (
	"errors"
	"math"
	"sort"
)

// ErrOddCycleSequence reports a flat cycle sequence with an odd number
// of values, which cannot be split into (start, end) pairs.
var ErrOddCycleSequence = errors.New("eqsignal: odd cycle sequence length")

// ErrLengthMismatch reports rfList and repetitions of different sizes.
var ErrLengthMismatch = errors.New("eqsignal: rfList and repetitions length mismatch")

// Table holds one row per input cycle across eight parallel columns.
// Invariant: DamageOfCycle[i] = CycleRepets[i] * Range[i]^slope.
type Table struct {
	Range         []float64
	DamageOfCycle []float64
	CumulDamage   []float64
	CycleIndex    []float64
	PercCumDamage []float64
	MaxOfCycle    []float64
	CycleRepets   []float64
	MinOfCycle    []float64
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.Range) }

// Clone deep copies every column. The block partition mutates ranges
// in place; Build runs it on the table it parses itself, and Clone
// keeps a caller's table intact when one is needed afterwards.
func (t *Table) Clone() *Table {
	cp := func(s []float64) []float64 {
		d := make([]float64, len(s))
		copy(d, s)
		return d
	}
	return &Table{
		Range:         cp(t.Range),
		DamageOfCycle: cp(t.DamageOfCycle),
		CumulDamage:   cp(t.CumulDamage),
		CycleIndex:    cp(t.CycleIndex),
		PercCumDamage: cp(t.PercCumDamage),
		MaxOfCycle:    cp(t.MaxOfCycle),
		CycleRepets:   cp(t.CycleRepets),
		MinOfCycle:    cp(t.MinOfCycle),
	}
}

// TotalDamage sums the damage column.
func (t *Table) TotalDamage() float64 {
	total := 0.0
	for _, d := range t.DamageOfCycle {
		total += d
	}
	return total
}

// TotalRepets sums the repetition weights, the cycle count of the
// whole table.
func (t *Table) TotalRepets() float64 {
	total := 0.0
	for _, r := range t.CycleRepets {
		total += r
	}
	return total
}

// ParseAllRainflowData flattens cycle sequences into a table. rfList
// holds one flat [peak, valley, ...] sequence per signal; repetitions
// the matching weight per signal.
func ParseAllRainflowData(rfList [][]float64, repetitions []float64, slope float64) (*Table, error) {
	if len(rfList) != len(repetitions) {
		return nil, ErrLengthMismatch
	}
	n := 0
	for _, cycles := range rfList {
		if len(cycles)%2 != 0 {
			return nil, ErrOddCycleSequence
		}
		n += len(cycles) / 2
	}

	t := &Table{
		Range:         make([]float64, 0, n),
		DamageOfCycle: make([]float64, 0, n),
		CumulDamage:   make([]float64, n),
		CycleIndex:    make([]float64, 0, n),
		PercCumDamage: make([]float64, n),
		MaxOfCycle:    make([]float64, 0, n),
		CycleRepets:   make([]float64, 0, n),
		MinOfCycle:    make([]float64, 0, n),
	}

	idx := 0
	for s, cycles := range rfList {
		reps := repetitions[s]
		for i := 0; i+1 < len(cycles); i += 2 {
			p, v := cycles[i], cycles[i+1]
			rng := math.Abs(p - v)
			t.Range = append(t.Range, rng)
			t.DamageOfCycle = append(t.DamageOfCycle, reps*math.Pow(rng, slope))
			t.CycleIndex = append(t.CycleIndex, float64(idx))
			t.MaxOfCycle = append(t.MaxOfCycle, math.Max(p, v))
			t.MinOfCycle = append(t.MinOfCycle, math.Min(p, v))
			t.CycleRepets = append(t.CycleRepets, reps)
			idx++
		}
	}
	return t, nil
}

// SortByRange reorders every column by ascending range and fills the
// cumulative damage columns in the new order.
func (t *Table) SortByRange() {
	n := t.Len()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return t.Range[perm[a]] < t.Range[perm[b]]
	})

	apply := func(col []float64) []float64 {
		out := make([]float64, n)
		for i, p := range perm {
			out[i] = col[p]
		}
		return out
	}
	t.Range = apply(t.Range)
	t.DamageOfCycle = apply(t.DamageOfCycle)
	t.CycleIndex = apply(t.CycleIndex)
	t.MaxOfCycle = apply(t.MaxOfCycle)
	t.MinOfCycle = apply(t.MinOfCycle)
	t.CycleRepets = apply(t.CycleRepets)

	total := t.TotalDamage()
	run := 0.0
	for i := 0; i < n; i++ {
		run += t.DamageOfCycle[i]
		t.CumulDamage[i] = run
		if total > 0 {
			t.PercCumDamage[i] = t.DamageOfCycle[i] / total
		} else {
			t.PercCumDamage[i] = 0
		}
	}
}
