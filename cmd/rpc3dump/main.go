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

// a little inspector for .rsp files: header, channel stats, quick damage

import (
	"flag"
	"fmt"
	"os"

	"github.com/galuszkm/RPC3/rainflow"
	"github.com/galuszkm/RPC3/rpc3"
	logging "gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("rpc3dump")

var inFile = flag.String("file", "", "RPC-III file to inspect")
var showHeader = flag.Bool("header", false, "dump every header field")
var doRainflow = flag.Bool("rainflow", false, "rainflow count each channel and print damage")
var slope = flag.Float64("slope", 5, "Wohler slope for -rainflow")
var bins = flag.Int("k", rainflow.DefaultBins, "reversal bin budget for -rainflow")
var verbose = flag.Bool("verbose", false, "debug logging")

func main() {
	flag.Parse()
	if *inFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	raw, err := os.ReadFile(*inFile)
	if err != nil {
		log.Errorf("read %s: %v", *inFile, err)
		os.Exit(1)
	}

	extra := map[string]rpc3.HeaderValue{
		"DATA_TYPE":      rpc3.Text(rpc3.DataTypeShort),
		"INT_FULL_SCALE": rpc3.Int(1 << 15),
	}
	f := rpc3.NewFile(raw, *inFile, *verbose, extra)
	if !f.Parse() {
		for _, e := range f.Errors {
			log.Errorf("%s: %s", *inFile, e)
		}
		os.Exit(1)
	}

	fmt.Printf("%s: %s, %d channels\n", *inFile, f.FileSize(), len(f.Channels))

	if *showHeader {
		for _, k := range f.Header.Keys() {
			v, _ := f.Header.Get(k)
			fmt.Printf("  %-32s %s\n", k, v.AsText())
		}
	}

	fmt.Printf("%4s %-24s %-8s %10s %12s %12s %12s\n",
		"#", "name", "units", "samples", "min", "max", "dt")
	for _, ch := range f.Channels {
		fmt.Printf("%4d %-24s %-8s %10d %12.4f %12.4f %12.6f\n",
			ch.Number, ch.Name, ch.Units, len(ch.Value), ch.Min, ch.Max, ch.Dt)
	}

	if *doRainflow {
		fmt.Printf("%4s %10s %10s %14s\n", "#", "cycles", "residue", "damage")
		for _, ch := range f.Channels {
			if err := ch.Rainflow(1, true, *bins); err != nil {
				log.Errorf("rainflow of %s: %v", ch.Name, err)
				os.Exit(1)
			}
			fmt.Printf("%4d %10d %10d %14.5e\n",
				ch.Number, len(ch.Cycles())/2, len(ch.Residuals()), ch.Damage(*slope))
		}
	}
}
