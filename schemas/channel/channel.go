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
	The Channel is the unit every engine stage works on: one decoded
	signal plus the rainflow state cached on it. The decode step fills
	the samples, Rainflow fills the cache, everything else reads.
*/

package channel

import (
	"github.com/galuszkm/RPC3/rainflow"
	"github.com/galuszkm/RPC3/utils"
)

// Channel owns one decoded signal and its cached rainflow results.
type Channel struct {
	Number   int
	Name     string
	Units    string
	Scale    float64
	Dt       float64
	Filename string
	FileHash string

	Value []float64
	Min   float64
	Max   float64

	reversals   []float64
	revIdx      []int
	cycles      []float64
	residuals   []float64
	rangeCounts []float64
	repetitions float64
}

// New returns an empty channel; the decoder appends samples afterwards.
func New(number int, name, units string, scale, dt float64, filename, fileHash string) *Channel {
	return &Channel{
		Number:   number,
		Name:     name,
		Units:    units,
		Scale:    scale,
		Dt:       dt,
		Filename: filename,
		FileHash: fileHash,
	}
}

// SetMinMax refreshes the cached sample extremes.
func (c *Channel) SetMinMax() {
	c.Min, c.Max = utils.FindMinMax(c.Value)
}

// Rainflow counts the channel and caches reversals, cycles, residue and
// the repetition-weighted range counts. A second call replaces the
// previous cache. k <= 0 selects the default bin budget.
func (c *Channel) Rainflow(repetitions float64, closeResiduals bool, k int) error {
	res, err := rainflow.Counting(c.Value, closeResiduals, k)
	if err != nil {
		return err
	}
	c.reversals = res.Reversals
	c.revIdx = res.ReversalIndices
	c.cycles = res.Cycles
	c.residuals = res.Residuals
	c.repetitions = repetitions
	c.rangeCounts = rainflow.CountRangeCycles(res.Cycles, repetitions)
	return nil
}

// Damage is the Miner sum of the cached range counts.
func (c *Channel) Damage(slope float64) float64 {
	return utils.CalcDamage(slope, c.rangeCounts)
}

// SetRainflowCycles replaces the cached cycles with an externally
// produced flat pair sequence and recounts the ranges with weight 1.
func (c *Channel) SetRainflowCycles(cycles []float64) {
	c.cycles = cycles
	c.repetitions = 1
	c.rangeCounts = rainflow.CountRangeCycles(cycles, 1)
}

// ScaleValue multiplies every sample and the channel scale by s.
func (c *Channel) ScaleValue(s float64) {
	for i := range c.Value {
		c.Value[i] *= s
	}
	c.Scale *= s
	c.SetMinMax()
}

// ClearRF drops the cached rainflow state.
func (c *Channel) ClearRF() {
	c.reversals = nil
	c.revIdx = nil
	c.cycles = nil
	c.residuals = nil
	c.rangeCounts = nil
	c.repetitions = 0
}

func (c *Channel) Reversals() []float64        { return c.reversals }
func (c *Channel) ReversalIndices() []int      { return c.revIdx }
func (c *Channel) Cycles() []float64           { return c.cycles }
func (c *Channel) Residuals() []float64        { return c.residuals }
func (c *Channel) RangeCounts() []float64      { return c.rangeCounts }
func (c *Channel) AppliedRepetitions() float64 { return c.repetitions }
