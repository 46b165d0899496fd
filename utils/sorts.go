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

package utils

// simple little "lists" that need sort defined for them

// RangeCountPairs is a flat [range, count, range, count, ...] sequence
// sorted by range descending, which is the order every range-count
// consumer expects.
type RangeCountPairs []float64

func (p RangeCountPairs) Len() int { return len(p) / 2 }
func (p RangeCountPairs) Less(i, j int) bool {
	return p[2*i] > p[2*j]
}
func (p RangeCountPairs) Swap(i, j int) {
	p[2*i], p[2*j] = p[2*j], p[2*i]
	p[2*i+1], p[2*j+1] = p[2*j+1], p[2*i+1]
}
