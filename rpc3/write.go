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
	RPC-III short-integer writer.

	One group holds the whole history: PTS_PER_FRAME is fixed at 1024,
	FRAMES covers the longest channel and PTS_PER_GROUP = FRAMES*1024.
	Shorter channels are right padded with their own last sample so
	every channel fills the group exactly.
*/

package rpc3

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/galuszkm/RPC3/schemas/channel"
	"github.com/galuszkm/RPC3/utils"
	"golang.org/x/text/encoding/charmap"
)

const writeFrameSize = 1024

// nowFunc feeds the DATE header field; swapped in tests for a fixed
// clock so encoded bytes are deterministic.
var nowFunc = time.Now

type headerEntry struct {
	key string
	val string
}

// Write encodes channels into a short-integer RPC-III byte stream.
// Every channel is normalized to int16 with its own scale factor.
func Write(channels []*channel.Channel) []byte {
	maxLen := 0
	for _, ch := range channels {
		if len(ch.Value) > maxLen {
			maxLen = len(ch.Value)
		}
	}

	frames := (maxLen + writeFrameSize - 1) / writeFrameSize
	if frames == 0 {
		frames = 1
	}
	ptsPerGroup := frames * writeFrameSize

	// normalize first so the scale factors can go into the header
	ints := make([][]int16, len(channels))
	factors := make([]float64, len(channels))
	for i, ch := range channels {
		padded := make([]float64, ptsPerGroup)
		copy(padded, ch.Value)
		if n := len(ch.Value); n > 0 {
			last := ch.Value[n-1]
			for j := n; j < ptsPerGroup; j++ {
				padded[j] = last
			}
		}
		ints[i], factors[i] = utils.NormalizeInt16(padded)
	}

	entries := []headerEntry{
		{"FORMAT", "BINARY"},
		{"NUM_HEADER_BLOCKS", ""}, // filled below
		{"NUM_PARAMS", ""},        // filled below
		{"FILE_TYPE", "TIME_HISTORY"},
		{"TIME_TYPE", "RESPONSE"},
		{"DELTA_T", formatReal(deltaTOf(channels))},
		{"CHANNELS", strconv.Itoa(len(channels))},
		{"DATE", nowFunc().Format("15:04:05 02-01-2006")},
		{"REPEATS", "1"},
		{"DATA_TYPE", DataTypeShort},
		{"PTS_PER_FRAME", strconv.Itoa(writeFrameSize)},
		{"PTS_PER_GROUP", strconv.Itoa(ptsPerGroup)},
		{"FRAMES", strconv.Itoa(frames)},
	}
	for i, ch := range channels {
		n := i + 1
		entries = append(entries,
			headerEntry{fmt.Sprintf("DESC.CHAN_%d", n), ch.Name},
			headerEntry{fmt.Sprintf("UNITS.CHAN_%d", n), ch.Units},
			headerEntry{fmt.Sprintf("SCALE.CHAN_%d", n), formatReal(factors[i])},
			headerEntry{fmt.Sprintf("LOWER_LIMIT.CHAN_%d", n), "1"},
			headerEntry{fmt.Sprintf("UPPER_LIMIT.CHAN_%d", n), "-1"},
		)
	}

	numParams := len(entries)
	numHeaderBlocks := (numParams + 3) / 4
	entries[1].val = strconv.Itoa(numHeaderBlocks)
	entries[2].val = strconv.Itoa(numParams)

	out := make([]byte, 0, numHeaderBlocks*headerPageSize+2*ptsPerGroup*len(channels))
	for _, e := range entries {
		out = append(out, encodeHeaderText(e.key, headerKeySize)...)
		out = append(out, encodeHeaderText(e.val, headerBlockSize-headerKeySize)...)
	}
	for len(out) < numHeaderBlocks*headerPageSize {
		out = append(out, 0)
	}

	var buf [2]byte
	for _, samples := range ints {
		for _, v := range samples {
			binary.LittleEndian.PutUint16(buf[:], uint16(v))
			out = append(out, buf[0], buf[1])
		}
	}
	return out
}

// deltaTOf takes the sample interval of the first channel; the format
// has a single DELTA_T for the whole file.
func deltaTOf(channels []*channel.Channel) float64 {
	if len(channels) == 0 {
		return 0
	}
	return channels[0].Dt
}

// formatReal renders a real in the exponential notation the format
// uses for SCALE and DELTA_T, six fractional digits.
func formatReal(v float64) string {
	return strconv.FormatFloat(v, 'e', 6, 64)
}

// encodeHeaderText converts s to windows-1251 and pads with NULs to
// size bytes; longer text is cut.
func encodeHeaderText(s string, size int) []byte {
	enc := charmap.Windows1251.NewEncoder()
	raw, err := enc.Bytes([]byte(s))
	if err != nil {
		// characters outside the codepage; keep what encodes
		raw = []byte(s)
	}
	out := make([]byte, size)
	copy(out, raw)
	return out
}
