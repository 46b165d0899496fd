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

package rpc3

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/galuszkm/RPC3/schemas/channel"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// pin the DATE header so encoded bytes are reproducible
	nowFunc = func() time.Time {
		return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	}
}

// headerBytes lays out key/value blocks padded to full 512 byte pages.
func headerBytes(entries [][2]string) []byte {
	out := make([]byte, 0, len(entries)*headerBlockSize)
	for _, e := range entries {
		out = append(out, encodeHeaderText(e[0], headerKeySize)...)
		out = append(out, encodeHeaderText(e[1], headerBlockSize-headerKeySize)...)
	}
	pages := (len(entries) + 3) / 4
	for len(out) < pages*headerPageSize {
		out = append(out, 0)
	}
	return out
}

func int16Bytes(vals ...int16) []byte {
	out := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

func float32Bytes(vals ...float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func TestParseShortInteger(t *testing.T) {

	Convey("Given a minimal short-integer file", t, func() {
		head := headerBytes([][2]string{
			{"FORMAT", "BINARY"},
			{"NUM_HEADER_BLOCKS", "3"},
			{"NUM_PARAMS", "12"},
			{"DELTA_T", "0.01"},
			{"CHANNELS", "1"},
			{"DATA_TYPE", "SHORT_INTEGER"},
			{"INT_FULL_SCALE", "32768"},
			{"PTS_PER_FRAME", "2"},
			{"PTS_PER_GROUP", "2"},
			{"FRAMES", "1"},
			{"DESC.CHAN_1", "FY_wheel"},
			{"SCALE.CHAN_1", "2.0"},
		})
		data := append(head, int16Bytes(100, -200)...)
		f := NewFile(data, "mini.rsp", false, nil)

		Convey("parse succeeds and the scale is applied", func() {
			So(f.Parse(), ShouldBeTrue)
			So(f.Errors, ShouldBeEmpty)
			So(len(f.Channels), ShouldEqual, 1)
			ch := f.Channels[0]
			So(ch.Name, ShouldEqual, "FY_wheel")
			So(ch.Value, ShouldResemble, []float64{200, -400})
			So(ch.Min, ShouldEqual, -400)
			So(ch.Max, ShouldEqual, 200)
			So(ch.Dt, ShouldEqual, 0.01)
			So(ch.FileHash, ShouldEqual, f.Hash)
		})
	})

	Convey("Given FRAMES not divisible by framesPerGroup", t, func() {
		head := headerBytes([][2]string{
			{"FORMAT", "BINARY"},
			{"NUM_HEADER_BLOCKS", "3"},
			{"NUM_PARAMS", "11"},
			{"DELTA_T", "0.01"},
			{"CHANNELS", "1"},
			{"DATA_TYPE", "SHORT_INTEGER"},
			{"INT_FULL_SCALE", "32768"},
			{"PTS_PER_FRAME", "2"},
			{"PTS_PER_GROUP", "4"},
			{"FRAMES", "3"},
			{"SCALE.CHAN_1", "1.0"},
		})
		// 2 groups of 4 samples, the last two are pad
		data := append(head, int16Bytes(1, 2, 3, 4, 5, 6, 0, 0)...)
		f := NewFile(data, "pad.rsp", false, nil)

		Convey("trailing pad is cut to FRAMES x PTS_PER_FRAME", func() {
			So(f.Parse(), ShouldBeTrue)
			So(f.Channels[0].Value, ShouldResemble, []float64{1, 2, 3, 4, 5, 6})
		})
	})
}

func TestParseFloatingPoint(t *testing.T) {

	Convey("Given a floating point file with two groups", t, func() {
		head := headerBytes([][2]string{
			{"FORMAT", "BINARY"},
			{"NUM_HEADER_BLOCKS", "3"},
			{"NUM_PARAMS", "11"},
			{"DELTA_T", "0.002"},
			{"CHANNELS", "1"},
			{"DATA_TYPE", "FLOATING_POINT"},
			{"PTS_PER_FRAME", "2"},
			{"PTS_PER_GROUP", "2"},
			{"FRAMES", "2"},
			{"DESC.CHAN_1", "FX"},
			{"UNITS.CHAN_1", "kN"},
		})
		data := append(head, float32Bytes(1.5, -2.5, 3, 4)...)
		f := NewFile(data, "float.rsp", false, nil)

		Convey("samples decode with unit scale", func() {
			So(f.Parse(), ShouldBeTrue)
			ch := f.Channels[0]
			So(ch.Units, ShouldEqual, "kN")
			So(ch.Scale, ShouldEqual, 1.0)
			So(ch.Value, ShouldResemble, []float64{1.5, -2.5, 3, 4})
		})
	})
}

func TestParseErrors(t *testing.T) {

	Convey("Given a file shorter than one header block", t, func() {
		f := NewFile(make([]byte, 64), "tiny.rsp", false, nil)
		So(f.Parse(), ShouldBeFalse)
		So(f.Errors, ShouldNotBeEmpty)
		So(f.Channels, ShouldBeNil)
	})

	Convey("Given a wrong leading key", t, func() {
		head := headerBytes([][2]string{
			{"NOT_FORMAT", "BINARY"},
			{"NUM_HEADER_BLOCKS", "1"},
			{"NUM_PARAMS", "4"},
			{"CHANNELS", "1"},
		})
		f := NewFile(head, "bad.rsp", false, nil)
		So(f.Parse(), ShouldBeFalse)
		So(f.Errors[0], ShouldContainSubstring, "FORMAT")
	})

	Convey("Given NUM_PARAMS of 3", t, func() {
		head := headerBytes([][2]string{
			{"FORMAT", "BINARY"},
			{"NUM_HEADER_BLOCKS", "1"},
			{"NUM_PARAMS", "3"},
		})
		f := NewFile(head, "bad.rsp", false, nil)
		So(f.Parse(), ShouldBeFalse)
		So(f.Errors[0], ShouldContainSubstring, "NUM_PARAMS")
	})

	Convey("Given a missing mandatory field", t, func() {
		head := headerBytes([][2]string{
			{"FORMAT", "BINARY"},
			{"NUM_HEADER_BLOCKS", "2"},
			{"NUM_PARAMS", "8"},
			{"DELTA_T", "0.01"},
			{"CHANNELS", "1"},
			{"DATA_TYPE", "SHORT_INTEGER"},
			{"PTS_PER_FRAME", "2"},
			{"PTS_PER_GROUP", "2"},
			// FRAMES and INT_FULL_SCALE absent
		})
		f := NewFile(head, "bad.rsp", false, nil)
		So(f.Parse(), ShouldBeFalse)
		found := false
		for _, e := range f.Errors {
			if e == "header field FRAMES: missing" {
				found = true
			}
		}
		So(found, ShouldBeTrue)
	})

	Convey("Given a data size mismatch", t, func() {
		head := headerBytes([][2]string{
			{"FORMAT", "BINARY"},
			{"NUM_HEADER_BLOCKS", "3"},
			{"NUM_PARAMS", "11"},
			{"DELTA_T", "0.01"},
			{"CHANNELS", "1"},
			{"DATA_TYPE", "SHORT_INTEGER"},
			{"INT_FULL_SCALE", "32768"},
			{"PTS_PER_FRAME", "2"},
			{"PTS_PER_GROUP", "2"},
			{"FRAMES", "1"},
			{"SCALE.CHAN_1", "1.0"},
		})
		data := append(head, int16Bytes(1, 2, 3)...) // 6 bytes, need 4
		f := NewFile(data, "bad.rsp", false, nil)
		So(f.Parse(), ShouldBeFalse)
		So(f.Errors[0], ShouldContainSubstring, "data size mismatch")
	})
}

func TestParseExtraHeaders(t *testing.T) {

	Convey("Given a file without DATA_TYPE and caller defaults", t, func() {
		head := headerBytes([][2]string{
			{"FORMAT", "BINARY"},
			{"NUM_HEADER_BLOCKS", "3"},
			{"NUM_PARAMS", "9"},
			{"DELTA_T", "0.01"},
			{"CHANNELS", "1"},
			{"PTS_PER_FRAME", "2"},
			{"PTS_PER_GROUP", "2"},
			{"FRAMES", "1"},
			{"SCALE.CHAN_1", "1.0"},
		})
		data := append(head, int16Bytes(10, -10)...)
		extra := map[string]HeaderValue{
			"DATA_TYPE":      Text(DataTypeShort),
			"INT_FULL_SCALE": Int(1 << 15),
			"DELTA_T":        Float(99), // present in file, must lose
		}
		f := NewFile(data, "dflt.rsp", false, extra)

		Convey("defaults fill the holes, the file wins on conflicts", func() {
			So(f.Parse(), ShouldBeTrue)
			So(f.Channels[0].Dt, ShouldEqual, 0.01)
			So(f.Channels[0].Value, ShouldResemble, []float64{10, -10})
		})
	})
}

func TestHeaderBlankAndEncoding(t *testing.T) {

	Convey("Given blank-named blocks and a cyrillic channel name", t, func() {
		head := headerBytes([][2]string{
			{"FORMAT", "BINARY"},
			{"NUM_HEADER_BLOCKS", "3"},
			{"NUM_PARAMS", "12"},
			{"DELTA_T", "0.01"},
			{"", "ignored"},
			{"CHANNELS", "1"},
			{"DATA_TYPE", "SHORT_INTEGER"},
			{"INT_FULL_SCALE", "32768"},
			{"PTS_PER_FRAME", "2"},
			{"PTS_PER_GROUP", "2"},
			{"FRAMES", "1"},
			{"DESC.CHAN_1", "Сила"},
		})
		// SCALE.CHAN_1 via defaults keeps NUM_PARAMS even
		data := append(head, int16Bytes(1, 2)...)
		extra := map[string]HeaderValue{"SCALE.CHAN_1": Float(1)}
		f := NewFile(data, "cyr.rsp", false, extra)

		Convey("the blank block is skipped and the name survives 1251", func() {
			So(f.Parse(), ShouldBeTrue)
			So(f.Header.Has("ignored"), ShouldBeFalse)
			So(f.Channels[0].Name, ShouldEqual, "Сила")
		})
	})
}

// makeSine rides a small positive bias so the positive peak dominates
// and the int16 normalization never clips the negative side.
func makeSine(n int, amp, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * (math.Sin(float64(i)/20+phase) + 0.01)
	}
	return out
}

// the writer omits INT_FULL_SCALE, readers supply it as a default
func writerDefaults() map[string]HeaderValue {
	return map[string]HeaderValue{"INT_FULL_SCALE": Int(1 << 15)}
}

func writeChannels() []*channel.Channel {
	c1 := channel.New(1, "FX_hub", "kN", 1, 0.005, "", "")
	c1.Value = makeSine(2048, 750, 0)
	c1.SetMinMax()
	c2 := channel.New(2, "MZ_hub", "kNm", 1, 0.005, "", "")
	c2.Value = makeSine(2048, 320, 1.2)
	c2.SetMinMax()
	return []*channel.Channel{c1, c2}
}

func TestWriteParseRoundTrip(t *testing.T) {
	chans := writeChannels()
	raw := Write(chans)

	f := NewFile(raw, "rt.rsp", false, writerDefaults())
	if !f.Parse() {
		t.Fatalf("parse failed: %v", f.Errors)
	}
	if len(f.Channels) != 2 {
		t.Fatalf("channels %d", len(f.Channels))
	}

	for i, ch := range f.Channels {
		if ch.Name != chans[i].Name || ch.Units != chans[i].Units {
			t.Fatalf("channel %d meta: %q %q", i, ch.Name, ch.Units)
		}
		if len(ch.Value) != len(chans[i].Value) {
			t.Fatalf("channel %d length %d want %d", i, len(ch.Value), len(chans[i].Value))
		}
		// one int16 quantum of tolerance: half a quantum of rounding plus
		// the SCALE factor stored with seven significant digits
		tol := ch.Scale * 1.0001
		for j, v := range ch.Value {
			if math.Abs(v-chans[i].Value[j]) > tol {
				t.Fatalf("channel %d sample %d: %v want %v (tol %v)", i, j, v, chans[i].Value[j], tol)
			}
		}
	}

	// second pass is a fixpoint: quantized samples survive exactly
	raw2 := Write(f.Channels)
	f2 := NewFile(raw2, "rt2.rsp", false, writerDefaults())
	if !f2.Parse() {
		t.Fatalf("second parse failed: %v", f2.Errors)
	}
	for i, ch := range f2.Channels {
		for j, v := range ch.Value {
			if math.Abs(v-f.Channels[i].Value[j]) > 1e-12*math.Abs(v)+1e-15 {
				t.Fatalf("fixpoint broken at channel %d sample %d: %v vs %v",
					i, j, v, f.Channels[i].Value[j])
			}
		}
	}
}

func TestWriteHeaderLayout(t *testing.T) {
	chans := writeChannels()
	raw := Write(chans)

	f := NewFile(raw, "hdr.rsp", false, writerDefaults())
	if !f.Parse() {
		t.Fatalf("parse failed: %v", f.Errors)
	}
	keys := f.Header.Keys()
	wantLead := []string{
		"FORMAT", "NUM_HEADER_BLOCKS", "NUM_PARAMS", "FILE_TYPE", "TIME_TYPE",
		"DELTA_T", "CHANNELS", "DATE", "REPEATS", "DATA_TYPE",
		"PTS_PER_FRAME", "PTS_PER_GROUP", "FRAMES",
	}
	for i, k := range wantLead {
		if keys[i] != k {
			t.Fatalf("key %d: %q want %q", i, keys[i], k)
		}
	}
	if v, _ := f.Header.Get("DATE"); v.AsText() != "12:30:00 01-03-2024" {
		t.Fatalf("DATE %q", v.AsText())
	}
	if v, _ := f.Header.Get("FILE_TYPE"); v.AsText() != "TIME_HISTORY" {
		t.Fatalf("FILE_TYPE %q", v.AsText())
	}
	if n, err := f.headerInt("PTS_PER_FRAME"); err != nil || n != 1024 {
		t.Fatalf("PTS_PER_FRAME %d %v", n, err)
	}
	if !f.Header.Has("LOWER_LIMIT.CHAN_2") || !f.Header.Has("UPPER_LIMIT.CHAN_2") {
		t.Fatal("per channel limit keys missing")
	}
}

func TestWritePadsShortChannels(t *testing.T) {
	long := channel.New(1, "long", "kN", 1, 0.01, "", "")
	long.Value = makeSine(1024, 100, 0)
	long.SetMinMax()
	short := channel.New(2, "short", "kN", 1, 0.01, "", "")
	short.Value = []float64{5, 7, 9}
	short.SetMinMax()

	raw := Write([]*channel.Channel{long, short})
	f := NewFile(raw, "pad.rsp", false, writerDefaults())
	if !f.Parse() {
		t.Fatalf("parse failed: %v", f.Errors)
	}
	got := f.Channels[1].Value
	if len(got) != 1024 {
		t.Fatalf("padded length %d", len(got))
	}
	tol := f.Channels[1].Scale / 2 * 1.0001
	for j := 3; j < len(got); j++ {
		if math.Abs(got[j]-9) > tol {
			t.Fatalf("pad sample %d: %v want 9", j, got[j])
		}
	}
}

func Benchmark_Parse_5Channels(b *testing.B) {
	chans := make([]*channel.Channel, 5)
	for i := range chans {
		chans[i] = channel.New(i+1, "ch", "kN", 1, 0.005, "", "")
		chans[i].Value = makeSine(8192, 500, float64(i))
		chans[i].SetMinMax()
	}
	raw := Write(chans)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f := NewFile(raw, "bench.rsp", false, writerDefaults())
		if !f.Parse() {
			b.Fatal(f.Errors)
		}
	}
}
