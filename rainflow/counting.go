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

package rainflow

// Result is one full counting pass over a raw signal.
type Result struct {
	Reversals       []float64
	ReversalIndices []int
	Cycles          []float64
	Residuals       []float64
}

// Counting runs the whole chain on a raw signal: reversal extraction,
// four point cycle counting and, when closeResiduals is set, closure
// of the residue. The residue itself stays open for cross-event use.
func Counting(samples []float64, closeResiduals bool, k int) (Result, error) {
	revs, idx := Reversals(samples, k)
	cycles, residue := CountCycles(revs)
	if closeResiduals {
		extra, err := CloseResiduals(residue)
		if err != nil {
			return Result{}, err
		}
		cycles = append(cycles, extra...)
	}
	return Result{
		Reversals:       revs,
		ReversalIndices: idx,
		Cycles:          cycles,
		Residuals:       residue,
	}, nil
}
