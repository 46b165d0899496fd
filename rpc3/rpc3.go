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
	RPC-III file container and decoder.

	Layout on disk:

	[128 byte header blocks ...][zero pad to NUM_HEADER_BLOCKS*512][data]

	The data section holds numberOfGroups groups; inside a group every
	channel in order stores framesPerGroup contiguous frames of
	PTS_PER_FRAME samples, little endian float32 or scaled int16.

	Content problems never raise: they accumulate on Errors and Parse
	returns false with no channels exposed.
*/

package rpc3

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/galuszkm/RPC3/schemas/channel"
	"github.com/galuszkm/RPC3/utils"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	logging "gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("rpc3")

const (
	headerBlockSize = 128
	headerKeySize   = 32
	headerPageSize  = 512

	// DATA_TYPE values the format defines
	DataTypeFloat = "FLOATING_POINT"
	DataTypeShort = "SHORT_INTEGER"
)

// File is one RPC-III file: raw bytes, parsed header, decoded channels
// and accumulated diagnostics.
type File struct {
	data  []byte
	debug bool
	extra map[string]HeaderValue

	Name     string
	Hash     string
	Header   *Header
	Channels []*channel.Channel
	Errors   []string

	// header derived geometry
	numChannels  int
	deltaT       float64
	ptsPerFrame  int
	ptsPerGroup  int
	frames       int
	dataType     string
	intFullScale int
}

// NewFile wraps raw bytes for parsing. extra supplies header defaults
// used only when the file itself lacks the field.
func NewFile(data []byte, name string, debug bool, extra map[string]HeaderValue) *File {
	return &File{
		data:   data,
		debug:  debug,
		extra:  extra,
		Name:   name,
		Hash:   uuid.NewString(),
		Header: NewHeader(),
	}
}

// FileSize renders the byte count for humans.
func (f *File) FileSize() string {
	return utils.ByteSizeString(int64(len(f.data)))
}

func (f *File) errorf(format string, args ...interface{}) {
	f.Errors = append(f.Errors, fmt.Sprintf(format, args...))
}

// Parse decodes the header and the sample data. It returns false and
// leaves diagnostics on Errors when the file is malformed; on success
// Channels holds one entry per CHANNELS with min/max already cached.
func (f *File) Parse() bool {
	if !f.parseHeader() {
		f.Channels = nil
		return false
	}
	if !f.parseData() {
		f.Channels = nil
		return false
	}
	if f.debug {
		log.Debug("parsed %s: %d channels, %d frames x %d pts, %s",
			f.Name, f.numChannels, f.frames, f.ptsPerFrame, f.FileSize())
	}
	return true
}

// readBlock decodes header block i into its key and value.
func (f *File) readBlock(i int) (string, string, bool) {
	off := i * headerBlockSize
	if off+headerBlockSize > len(f.data) {
		f.errorf("header block %d: file too short (%d bytes)", i, len(f.data))
		return "", "", false
	}
	key := decodeHeaderText(f.data[off : off+headerKeySize])
	val := decodeHeaderText(f.data[off+headerKeySize : off+headerBlockSize])
	return key, val, true
}

// decodeHeaderText converts windows-1251 bytes to a string, dropping
// NULs and newlines and trimming the blank padding.
func decodeHeaderText(raw []byte) string {
	dec := charmap.Windows1251.NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		// windows-1251 maps every byte; this cannot trigger on real input
		out = raw
	}
	s := string(out)
	s = strings.Map(func(r rune) rune {
		if r == 0 || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func (f *File) parseHeader() bool {
	fixed := []string{"FORMAT", "NUM_HEADER_BLOCKS", "NUM_PARAMS"}
	for i, want := range fixed {
		key, val, ok := f.readBlock(i)
		if !ok {
			return false
		}
		if key != want {
			f.errorf("header block %d: expected %s, got %q", i, want, key)
			return false
		}
		f.Header.Set(key, Text(val))
	}

	numParams, err := f.headerInt("NUM_PARAMS")
	if err != nil {
		f.errorf("NUM_PARAMS: %v", err)
		return false
	}
	if numParams <= 3 {
		f.errorf("NUM_PARAMS must exceed 3, got %d", numParams)
		return false
	}

	for i := 3; i < numParams; i++ {
		key, val, ok := f.readBlock(i)
		if !ok {
			return false
		}
		if key == "" {
			continue
		}
		f.Header.Set(key, Text(val))
	}

	// caller defaults fill holes only, the file always wins
	for key, v := range f.extra {
		f.Header.SetIfAbsent(key, v)
	}

	return f.validateHeader()
}

func (f *File) headerInt(key string) (int, error) {
	v, ok := f.Header.Get(key)
	if !ok {
		return 0, fmt.Errorf("missing")
	}
	return v.AsInt()
}

func (f *File) headerFloat(key string) (float64, error) {
	v, ok := f.Header.Get(key)
	if !ok {
		return 0, fmt.Errorf("missing")
	}
	return v.AsFloat()
}

// validateHeader checks the mandatory fields and caches the geometry.
func (f *File) validateHeader() bool {
	ok := true
	intField := func(key string) int {
		n, err := f.headerInt(key)
		if err != nil {
			f.errorf("header field %s: %v", key, err)
			ok = false
		}
		return n
	}

	f.numChannels = intField("CHANNELS")
	f.ptsPerFrame = intField("PTS_PER_FRAME")
	f.ptsPerGroup = intField("PTS_PER_GROUP")
	f.frames = intField("FRAMES")

	dt, err := f.headerFloat("DELTA_T")
	if err != nil {
		f.errorf("header field DELTA_T: %v", err)
		ok = false
	}
	f.deltaT = dt

	dtype, present := f.Header.Get("DATA_TYPE")
	if !present {
		f.errorf("header field DATA_TYPE: missing")
		return false
	}
	f.dataType = dtype.AsText()
	switch f.dataType {
	case DataTypeFloat:
	case DataTypeShort:
		f.intFullScale = intField("INT_FULL_SCALE")
	default:
		f.errorf("header field DATA_TYPE: unsupported %q", f.dataType)
		ok = false
	}

	if !ok {
		return false
	}
	if f.numChannels <= 0 || f.ptsPerFrame <= 0 || f.ptsPerGroup <= 0 || f.frames <= 0 {
		f.errorf("non positive geometry: CHANNELS=%d PTS_PER_FRAME=%d PTS_PER_GROUP=%d FRAMES=%d",
			f.numChannels, f.ptsPerFrame, f.ptsPerGroup, f.frames)
		return false
	}
	if f.ptsPerGroup%f.ptsPerFrame != 0 {
		f.errorf("PTS_PER_GROUP %d not a multiple of PTS_PER_FRAME %d", f.ptsPerGroup, f.ptsPerFrame)
		return false
	}
	return true
}

// channelMeta reads the per channel descriptor fields.
func (f *File) channelMeta(i int) (name, units string, scale float64, ok bool) {
	name = fmt.Sprintf("Channel_%d", i)
	units = ""
	scale = 1.0
	ok = true

	if v, present := f.Header.Get(fmt.Sprintf("DESC.CHAN_%d", i)); present {
		name = v.AsText()
	}
	if v, present := f.Header.Get(fmt.Sprintf("UNITS.CHAN_%d", i)); present {
		units = v.AsText()
	}
	if f.dataType == DataTypeShort {
		v, present := f.Header.Get(fmt.Sprintf("SCALE.CHAN_%d", i))
		if !present {
			f.errorf("header field SCALE.CHAN_%d: missing", i)
			return name, units, scale, false
		}
		s, err := v.AsFloat()
		if err != nil {
			f.errorf("header field SCALE.CHAN_%d: %v", i, err)
			return name, units, scale, false
		}
		scale = s
	}
	return name, units, scale, true
}

func (f *File) parseData() bool {
	numHeaderBlocks, err := f.headerInt("NUM_HEADER_BLOCKS")
	if err != nil {
		f.errorf("NUM_HEADER_BLOCKS: %v", err)
		return false
	}
	offset := numHeaderBlocks * headerPageSize
	if offset > len(f.data) {
		f.errorf("header claims %d bytes, file has %d", offset, len(f.data))
		return false
	}

	framesPerGroup := f.ptsPerGroup / f.ptsPerFrame
	numberOfGroups := (f.frames + framesPerGroup - 1) / framesPerGroup
	unitSize := 4
	if f.dataType == DataTypeShort {
		unitSize = 2
	}

	expected := f.ptsPerFrame * unitSize * framesPerGroup * numberOfGroups * f.numChannels
	if got := len(f.data) - offset; got != expected {
		f.errorf("data size mismatch: %d bytes after header, geometry needs %d", got, expected)
		return false
	}

	scales := make([]float64, f.numChannels)
	chans := make([]*channel.Channel, f.numChannels)
	for i := 0; i < f.numChannels; i++ {
		name, units, scale, ok := f.channelMeta(i + 1)
		if !ok {
			return false
		}
		scales[i] = scale
		chans[i] = channel.New(i+1, name, units, scale, f.deltaT, f.Name, f.Hash)
	}

	groupPts := framesPerGroup * f.ptsPerFrame
	values := make([][]float64, f.numChannels)
	for i := range values {
		values[i] = make([]float64, 0, numberOfGroups*groupPts)
	}

	pos := offset
	for g := 0; g < numberOfGroups; g++ {
		for c := 0; c < f.numChannels; c++ {
			if f.dataType == DataTypeFloat {
				for k := 0; k < groupPts; k++ {
					bits := binary.LittleEndian.Uint32(f.data[pos:])
					values[c] = append(values[c], float64(math.Float32frombits(bits)))
					pos += 4
				}
			} else {
				for k := 0; k < groupPts; k++ {
					raw := int16(binary.LittleEndian.Uint16(f.data[pos:]))
					values[c] = append(values[c], float64(raw)*scales[c])
					pos += 2
				}
			}
		}
	}

	// the last group may carry pad frames past FRAMES
	want := f.frames * f.ptsPerFrame
	for i, ch := range chans {
		v := values[i]
		if len(v) > want {
			v = v[:want]
		}
		ch.Value = v
		ch.SetMinMax()
	}
	f.Channels = chans
	return true
}
