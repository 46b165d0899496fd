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
	Reversal extraction for rainflow counting.

	The raw signal is quantized onto k bins before turning points are
	picked, so measurement noise below one bin width never produces a
	reversal. The quantized midpoint values are what the four point
	counter sees; indices always refer to the raw sample positions.
*/

package rainflow

import (
	"github.com/galuszkm/RPC3/utils"
)

// DefaultBins is the bin budget used when the caller passes k <= 0.
const DefaultBins = 4096

// Reversals returns the turning point values of sig after quantization
// onto k bins, plus the positions of those points in sig.
func Reversals(sig []float64, k int) ([]float64, []int) {
	if k <= 0 {
		k = DefaultBins
	}
	n := len(sig)
	if n == 0 {
		return []float64{}, []int{}
	}
	if n < 2 {
		vals := make([]float64, n)
		copy(vals, sig)
		return vals, []int{0}
	}

	min, max := utils.FindMinMax(sig)
	if min == max {
		return []float64{sig[0], sig[n-1]}, []int{0, n - 1}
	}

	// k+2 boundaries, half a bin of slack on both sides so min and max
	// land on bin midpoints.
	dy := (max - min) / (2 * float64(k))
	bounds := utils.Linspace(min-dy, max+dy, k+2)
	w := bounds[1] - bounds[0]
	y0 := bounds[0]

	z := make([]float64, n)
	for j, v := range sig {
		bin := int((v - y0) / w)
		if bin < 0 {
			bin = 0
		}
		if bin > k+1 {
			bin = k + 1
		}
		z[j] = y0 + (float64(bin)+0.5)*w
	}

	// candidate positions: every start of a plateau change, then the
	// position right after the last change
	var cand []int
	for j := 0; j+1 < n; j++ {
		if z[j+1] != z[j] {
			cand = append(cand, j)
		}
	}
	if len(cand) == 0 {
		return []float64{z[0], z[n-1]}, []int{0, n - 1}
	}
	cand = append(cand, cand[len(cand)-1]+1)

	idx := make([]int, 0, len(cand))
	idx = append(idx, cand[0])
	for i := 1; i+1 < len(cand); i++ {
		d1 := z[cand[i]] - z[cand[i-1]]
		d2 := z[cand[i+1]] - z[cand[i]]
		if d1*d2 < 0 {
			idx = append(idx, cand[i])
		}
	}
	// the final candidate terminates the sequence whether or not it
	// passes the sign test
	idx = append(idx, cand[len(cand)-1])

	vals := make([]float64, len(idx))
	for i, j := range idx {
		vals[i] = z[j]
	}
	return vals, idx
}
