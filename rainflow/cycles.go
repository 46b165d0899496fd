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
	Four point closed cycle extraction and residue handling.

	Cycles travel as flat [start, end, start, end, ...] sequences to
	keep the downstream histogram loops on one contiguous buffer.
*/

package rainflow

import (
	"errors"
	"math"
)

// ErrRepeatedEndpoint reports a reversal concatenation whose join
// produces a repeated endpoint (t1 == 0), which has no valid
// alternating continuation.
var ErrRepeatedEndpoint = errors.New("rainflow: repeated endpoint in reversal concatenation")

// CountCycles runs the four point stack rule over a reversal sequence.
// It returns the closed cycles as flat pairs and the residue, the open
// reversals left on the stack.
func CountCycles(reversals []float64) ([]float64, []float64) {
	cycles := make([]float64, 0, len(reversals))
	stack := make([]float64, 0, len(reversals))

	for _, r := range reversals {
		stack = append(stack, r)
		for len(stack) >= 4 {
			n := len(stack)
			s0, s1, s2, s3 := stack[n-4], stack[n-3], stack[n-2], stack[n-1]
			d1 := math.Abs(s1 - s0)
			d2 := math.Abs(s2 - s1)
			d3 := math.Abs(s3 - s2)
			if d2 <= d1 && d2 <= d3 {
				cycles = append(cycles, s1, s2)
				// keep s0 and s3, drop the inner pair
				stack[n-3] = s3
				stack = stack[:n-2]
			} else {
				break
			}
		}
	}
	return cycles, stack
}

// ConcatenateReversals joins two reversal sequences so the result still
// alternates. Endpoint reversals that stop alternating across the seam
// are dropped per the sign of t1 and t2; t1 == 0 is fatal.
func ConcatenateReversals(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		out := make([]float64, len(b))
		copy(out, b)
		return out, nil
	}
	if len(b) == 0 {
		out := make([]float64, len(a))
		copy(out, a)
		return out, nil
	}
	if len(a) < 2 || len(b) < 2 {
		out := make([]float64, 0, len(a)+len(b))
		out = append(out, a...)
		out = append(out, b...)
		return out, nil
	}

	dAend := a[len(a)-1] - a[len(a)-2]
	dBstart := b[1] - b[0]
	dJoin := b[0] - a[len(a)-1]
	t1 := dAend * dBstart
	t2 := dAend * dJoin

	out := make([]float64, 0, len(a)+len(b))
	switch {
	case t1 > 0 && t2 < 0:
		out = append(out, a...)
		out = append(out, b...)
	case t1 > 0 && t2 >= 0:
		out = append(out, a[:len(a)-1]...)
		out = append(out, b[1:]...)
	case t1 < 0 && t2 >= 0:
		out = append(out, a...)
		out = append(out, b[1:]...)
	case t1 < 0 && t2 < 0:
		out = append(out, a[:len(a)-1]...)
		out = append(out, b...)
	default:
		return nil, ErrRepeatedEndpoint
	}
	return out, nil
}

// CloseResiduals treats the residue as a repeating history: the residue
// is concatenated with itself and counted again. The cycles that close
// across the seam are returned; the residue itself is untouched.
func CloseResiduals(residue []float64) ([]float64, error) {
	if len(residue) < 2 {
		return nil, nil
	}
	joined, err := ConcatenateReversals(residue, residue)
	if err != nil {
		return nil, err
	}
	cycles, _ := CountCycles(joined)
	return cycles, nil
}
