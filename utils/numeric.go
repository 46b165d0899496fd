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
	Small numeric kernels shared by the codec and the counting engines.
	Everything here works on plain float64 slices and owns its outputs.
*/

package utils

import (
	"math"

	"github.com/dustin/go-humanize"
)

// Int16Max is the positive full scale of a signed 16 bit sample.
const Int16Max = 1<<15 - 1

// FindMinMax scans seq once. An empty slice yields (+Inf, -Inf) so the
// result can seed a running min/max.
func FindMinMax(seq []float64) (float64, float64) {
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, v := range seq {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Linspace returns n evenly spaced values from a to b inclusive.
// n == 1 returns [a], n <= 0 returns an empty slice.
func Linspace(a, b float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = a
		return out
	}
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	return out
}

// NormalizeInt16 converts seq to signed 16 bit samples and returns the
// scale factor that maps them back, factor = peak / (2^15 - 1).
//
// The peak is max(max, |max|), i.e. the signal maximum taken absolute.
// A signal whose minimum dips below -|max| overflows int16 on the
// negative side: the conversion does not saturate, so those samples do
// not come out as -32768. TestNormalizeInt16NegativePeak pins the
// positive-peak factor.
func NormalizeInt16(seq []float64) ([]int16, float64) {
	_, max := FindMinMax(seq)
	peak := math.Max(max, math.Abs(max))
	factor := peak / float64(Int16Max)
	out := make([]int16, len(seq))
	if factor == 0 || math.IsInf(peak, -1) {
		return out, 1
	}
	for i, v := range seq {
		out[i] = int16(math.Round(v / factor))
	}
	return out, factor
}

// CalcDamage is the Miner sum over a flat [range, count, ...] sequence:
// sum of range^slope * count.
func CalcDamage(slope float64, rangeCounts []float64) float64 {
	total := 0.0
	for i := 0; i+1 < len(rangeCounts); i += 2 {
		total += math.Pow(rangeCounts[i], slope) * rangeCounts[i+1]
	}
	return total
}

// ByteSizeString renders a byte count for humans ("1.2 MB").
func ByteSizeString(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
