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

package main

// batch durability report: RPC-III files in, damage tables out

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/galuszkm/RPC3/eqsignal"
	"github.com/galuszkm/RPC3/rainflow"
	"github.com/galuszkm/RPC3/rpc3"
	"github.com/galuszkm/RPC3/schemas/channel"
	"github.com/galuszkm/RPC3/utils"
	"github.com/xuri/excelize/v2"
	logging "gopkg.in/op/go-logging.v1"
	yaml "gopkg.in/yaml.v2"
)

var log = logging.MustGetLogger("rpc3report")

var jobFile = flag.String("job", "job.yaml", "yaml job description")
var verbose = flag.Bool("verbose", false, "debug logging")

// JobEvent is one input file with its duty-cycle repetition count.
type JobEvent struct {
	File    string `yaml:"file"`
	Name    string `yaml:"name"`
	Repeats int    `yaml:"repeats"`
}

// Job is the yaml job description.
type Job struct {
	Slope     float64    `yaml:"slope"`
	Gate      float64    `yaml:"gate"`
	Bins      int        `yaml:"bins"`
	Blocks    int        `yaml:"blocks"`
	MinCycles float64    `yaml:"min_cycles"`
	Combine   bool       `yaml:"combine"`
	CSVOut    string     `yaml:"csv"`
	XLSXOut   string     `yaml:"xlsx"`
	EncodeOut string     `yaml:"encode"`
	Events    []JobEvent `yaml:"events"`
}

// result is one report line: a channel or a combined channel group.
type result struct {
	Source      string
	Channel     string
	Repeats     int
	Damage      float64
	RangeCounts []float64
	CumRange    []float64
	CumN        []float64
	CumD        []float64
	LcCum       []float64
	LcLevel     []float64
	EqSignal    []eqsignal.Row
}

func fatal(format string, args ...interface{}) {
	log.Errorf(format, args...)
	os.Exit(1)
}

func loadJob(path string) (*Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	job := &Job{
		Slope:     5,
		Bins:      rainflow.DefaultBins,
		Blocks:    5,
		MinCycles: 1e5,
	}
	if err := yaml.Unmarshal(raw, job); err != nil {
		return nil, err
	}
	if len(job.Events) == 0 {
		return nil, fmt.Errorf("job %s: no events", path)
	}
	return job, nil
}

func parseFiles(job *Job) ([]*channel.Channel, []channel.Event) {
	var chans []*channel.Channel
	var events []channel.Event
	for _, ev := range job.Events {
		raw, err := os.ReadFile(ev.File)
		if err != nil {
			fatal("read %s: %v", ev.File, err)
		}
		// defaults cover encoder output, which omits INT_FULL_SCALE
		extra := map[string]rpc3.HeaderValue{
			"DATA_TYPE":      rpc3.Text(rpc3.DataTypeShort),
			"INT_FULL_SCALE": rpc3.Int(1 << 15),
		}
		f := rpc3.NewFile(raw, ev.File, *verbose, extra)
		if !f.Parse() {
			for _, e := range f.Errors {
				log.Errorf("%s: %s", ev.File, e)
			}
			fatal("parse of %s failed", ev.File)
		}
		log.Noticef("parsed %s (%s): %d channels", ev.File, f.FileSize(), len(f.Channels))
		reps := ev.Repeats
		if reps <= 0 {
			reps = 1
		}
		events = append(events, channel.Event{Name: ev.Name, FileHash: f.Hash, Repetitions: reps})
		chans = append(chans, f.Channels...)
	}
	return chans, events
}

func repeatsOf(events []channel.Event, hash string) int {
	for _, e := range events {
		if e.FileHash == hash {
			return e.Repetitions
		}
	}
	return 1
}

// analyzeSingle counts every channel independently, residues closed.
func analyzeSingle(job *Job, chans []*channel.Channel, events []channel.Event) []result {
	out := make([]result, 0, len(chans))
	for _, ch := range chans {
		reps := repeatsOf(events, ch.FileHash)
		if err := ch.Rainflow(float64(reps), true, job.Bins); err != nil {
			fatal("rainflow of %s: %v", ch.Name, err)
		}
		r := result{
			Source:      ch.Filename,
			Channel:     ch.Name,
			Repeats:     reps,
			Damage:      ch.Damage(job.Slope),
			RangeCounts: ch.RangeCounts(),
		}
		fillCurves(job, &r, [][]float64{ch.Cycles()}, []float64{float64(reps)})
		out = append(out, r)
	}
	return out
}

// analyzeCombined groups channels by name and merges each group across
// events, chaining the open residues.
func analyzeCombined(job *Job, chans []*channel.Channel, events []channel.Event) []result {
	var order []string
	groups := make(map[string][]*channel.Channel)
	for _, ch := range chans {
		reps := repeatsOf(events, ch.FileHash)
		if err := ch.Rainflow(float64(reps), false, job.Bins); err != nil {
			fatal("rainflow of %s: %v", ch.Name, err)
		}
		if _, ok := groups[ch.Name]; !ok {
			order = append(order, ch.Name)
		}
		groups[ch.Name] = append(groups[ch.Name], ch)
	}

	out := make([]result, 0, len(order))
	for _, name := range order {
		grp := groups[name]
		resCycles, rc, err := channel.CombineChannels(grp, events)
		if err != nil {
			fatal("combine %s: %v", name, err)
		}
		r := result{
			Source:      "combined",
			Channel:     name,
			Repeats:     len(grp),
			Damage:      utils.CalcDamage(job.Slope, rc),
			RangeCounts: rc,
		}
		rfList := make([][]float64, 0, len(grp)+1)
		repetitions := make([]float64, 0, len(grp)+1)
		for _, ch := range grp {
			rfList = append(rfList, ch.Cycles())
			repetitions = append(repetitions, ch.AppliedRepetitions())
		}
		rfList = append(rfList, resCycles)
		repetitions = append(repetitions, 1)
		fillCurves(job, &r, rfList, repetitions)
		out = append(out, r)
	}
	return out
}

func fillCurves(job *Job, r *result, rfList [][]float64, repetitions []float64) {
	r.CumRange, r.CumN, r.CumD, _ = rainflow.Cumulative(r.RangeCounts, job.Slope, job.Gate)

	lcCum, lcLevel, err := eqsignal.LevelCrossing(rfList, repetitions, 0)
	if err != nil {
		fatal("level crossing of %s: %v", r.Channel, err)
	}
	r.LcCum, r.LcLevel = lcCum, lcLevel

	blocks, err := eqsignal.Build(rfList, repetitions, job.Blocks, job.MinCycles, job.Slope)
	switch err {
	case nil:
		r.EqSignal = blocks
	case eqsignal.ErrInsufficientCycles, eqsignal.ErrNoCycles:
		log.Warning("%s: fewer cycles than %g, no equivalent signal", r.Channel, job.MinCycles)
	default:
		fatal("equivalent signal of %s: %v", r.Channel, err)
	}
}

func printTable(job *Job, results []result) {
	fmt.Printf("%-28s %-20s %10s %14s\n", "source", "channel", "repeats", "damage")
	for _, r := range results {
		fmt.Printf("%-28s %-20s %10d %14.5e\n", r.Source, r.Channel, r.Repeats, r.Damage)
	}
	fmt.Printf("slope %g, gate %g%%, %d bins\n", job.Slope, job.Gate, job.Bins)
}

func writeCSV(path string, results []result) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	w := csv.NewWriter(fh)
	defer w.Flush()

	if err := w.Write([]string{"source", "channel", "repeats", "damage", "range", "count"}); err != nil {
		return err
	}
	for _, r := range results {
		for i := 0; i+1 < len(r.RangeCounts); i += 2 {
			rec := []string{
				r.Source,
				r.Channel,
				strconv.Itoa(r.Repeats),
				strconv.FormatFloat(r.Damage, 'e', 6, 64),
				strconv.FormatFloat(r.RangeCounts[i], 'g', -1, 64),
				strconv.FormatFloat(r.RangeCounts[i+1], 'g', -1, 64),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeXLSX(path string, results []result) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Damage")
	f.SetSheetRow("Damage", "A1", &[]interface{}{"source", "channel", "repeats", "damage"})
	for i, r := range results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		f.SetSheetRow("Damage", cell, &[]interface{}{r.Source, r.Channel, r.Repeats, r.Damage})
	}

	f.NewSheet("Cumulative")
	f.SetSheetRow("Cumulative", "A1", &[]interface{}{"channel", "range", "ncum", "dcum"})
	row := 2
	for _, r := range results {
		for i := range r.CumRange {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			f.SetSheetRow("Cumulative", cell, &[]interface{}{r.Channel, r.CumRange[i], r.CumN[i], r.CumD[i]})
			row++
		}
	}

	f.NewSheet("LevelCrossing")
	f.SetSheetRow("LevelCrossing", "A1", &[]interface{}{"channel", "level", "cumulative"})
	row = 2
	for _, r := range results {
		for i := range r.LcLevel {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			f.SetSheetRow("LevelCrossing", cell, &[]interface{}{r.Channel, r.LcLevel[i], r.LcCum[i]})
			row++
		}
	}

	f.NewSheet("EqSignal")
	f.SetSheetRow("EqSignal", "A1", &[]interface{}{
		"channel", "range", "mean", "repetition", "percent_damage", "block_damage", "adjusted_mean"})
	row = 2
	for _, r := range results {
		for _, b := range r.EqSignal {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			f.SetSheetRow("EqSignal", cell, &[]interface{}{
				r.Channel, b.Range, b.Mean, b.Repetition, b.PercentDamage, b.BlockDamage, b.AdjustedMean})
			row++
		}
	}

	return f.SaveAs(path)
}

func main() {
	flag.Parse()

	level := logging.NOTICE
	if *verbose {
		level = logging.DEBUG
	}
	logging.SetLevel(level, "")

	job, err := loadJob(*jobFile)
	if err != nil {
		fatal("job file: %v", err)
	}

	chans, events := parseFiles(job)

	var results []result
	if job.Combine {
		results = analyzeCombined(job, chans, events)
	} else {
		results = analyzeSingle(job, chans, events)
	}
	printTable(job, results)

	if job.CSVOut != "" {
		if err := writeCSV(job.CSVOut, results); err != nil {
			fatal("csv export: %v", err)
		}
		log.Noticef("wrote %s", job.CSVOut)
	}
	if job.XLSXOut != "" {
		if err := writeXLSX(job.XLSXOut, results); err != nil {
			fatal("xlsx export: %v", err)
		}
		log.Noticef("wrote %s", job.XLSXOut)
	}
	if job.EncodeOut != "" {
		raw := rpc3.Write(chans)
		if err := os.WriteFile(job.EncodeOut, raw, 0644); err != nil {
			fatal("encode: %v", err)
		}
		log.Noticef("wrote %s (%s)", job.EncodeOut, utils.ByteSizeString(int64(len(raw))))
	}
}
