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

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCounting(t *testing.T) {

	Convey("Given a sawtooth signal", t, func() {
		sig := []float64{0, 10, 0, 10, 0}

		Convey("without closure the residue stays open", func() {
			res, err := Counting(sig, false, 10)
			So(err, ShouldBeNil)
			So(res.Cycles, ShouldResemble, []float64{10, 0})
			So(res.Residuals, ShouldResemble, []float64{0, 10, 0})
			So(res.Reversals, ShouldResemble, []float64{0, 10, 0, 10, 0})
			So(res.ReversalIndices, ShouldResemble, []int{0, 1, 2, 3, 4})
		})

		Convey("with closure the residue folds into extra cycles", func() {
			open, err := Counting(sig, false, 10)
			So(err, ShouldBeNil)
			closed, err := Counting(sig, true, 10)
			So(err, ShouldBeNil)
			So(len(closed.Cycles), ShouldBeGreaterThan, len(open.Cycles))

			Convey("but the residue itself is preserved", func() {
				So(closed.Residuals, ShouldResemble, open.Residuals)
			})
		})
	})

	Convey("Counting a larger history conserves cycle balance", t, func() {
		sig := twoToneSignal(2048)
		res, err := Counting(sig, true, DefaultBins)
		So(err, ShouldBeNil)

		// every reversal is consumed by a cycle or parked in the residue
		So(len(res.Cycles)%2, ShouldEqual, 0)
		So(len(res.Reversals), ShouldEqual, len(res.ReversalIndices))
		So(len(res.Residuals), ShouldBeLessThan, len(res.Reversals))

		Convey("and the range counts stay strictly descending", func() {
			rc := CountRangeCycles(res.Cycles, 1)
			for i := 2; i+1 < len(rc); i += 2 {
				So(rc[i], ShouldBeLessThan, rc[i-2])
			}
		})
	})
}
