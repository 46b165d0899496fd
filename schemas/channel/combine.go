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
	Cross-event aggregation: channels recorded in separate files but
	sharing a name are combined into one range-count set. Each channel
	must have been counted with residue closure off, so the open
	residues can be chained across events before they are closed here.
*/

package channel

import (
	"github.com/galuszkm/RPC3/rainflow"
)

// CombineChannels merges the range counts of channels sharing a name.
// Residues are concatenated back to back, repeated per the owning
// event, recounted with closure, and the closure cycles join the total
// with weight 1. The closure cycles are also returned so the
// equivalent-signal builder can take them as an extra input sequence.
func CombineChannels(chs []*Channel, events []Event) (residualCycles, rangeCounts []float64, err error) {
	var all []float64
	var combined []float64

	for _, ch := range chs {
		all = append(all, ch.RangeCounts()...)
		reps := repeatsFor(events, ch.FileHash)
		for r := 0; r < reps; r++ {
			combined, err = rainflow.ConcatenateReversals(combined, ch.Residuals())
			if err != nil {
				return nil, nil, err
			}
		}
	}

	cycles, residue := rainflow.CountCycles(combined)
	extra, err := rainflow.CloseResiduals(residue)
	if err != nil {
		return nil, nil, err
	}
	cycles = append(cycles, extra...)

	all = append(all, rainflow.CountRangeCycles(cycles, 1)...)
	return cycles, rainflow.CountUniqueRanges(all), nil
}
