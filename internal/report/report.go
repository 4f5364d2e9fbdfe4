// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report renders experiment results as comma-separated records and
// as a console listing.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/fibhash"
	"github.com/cockroachdb/fibhash/internal/experiment"
	"github.com/cockroachdb/fibhash/internal/keygen"
)

var labels = []string{
	"Time for insert",
	"Time for search",
	"Time for remove",
	"Collision rate",
	"Average Probe Length (insert)",
	"Average Probe Length (search)",
	"Average Probe Length (remove)",
	"Maximum Probe Length (insert)",
	"Maximum Probe Length (search)",
	"Maximum Probe Length (remove)",
}

// Labels returns the names of the values produced by Values.
func Labels() []string {
	return append([]string(nil), labels...)
}

// Values formats r in the order of Labels.
func Values(r experiment.Result) []string {
	s := r.Stats
	return []string{
		micros(r.InsertTime),
		micros(r.SearchTime),
		micros(r.RemoveTime),
		fmt.Sprintf("%.2f%%", s.CollisionRate()*100),
		fmt.Sprintf("%.2f", s.AverageProbeLength(fibhash.OpInsert)),
		fmt.Sprintf("%.2f", s.AverageProbeLength(fibhash.OpSearch)),
		fmt.Sprintf("%.2f", s.AverageProbeLength(fibhash.OpRemove)),
		strconv.FormatUint(uint64(s.MaxProbeLength(fibhash.OpInsert)), 10),
		strconv.FormatUint(uint64(s.MaxProbeLength(fibhash.OpSearch)), 10),
		strconv.FormatUint(uint64(s.MaxProbeLength(fibhash.OpRemove)), 10),
	}
}

func micros(d time.Duration) string {
	return fmt.Sprintf("%.2f µs", float64(d)/float64(time.Microsecond))
}

// Title names a result for a run over keys of distribution dist.
func Title(r experiment.Result, dist keygen.Distribution) string {
	return fmt.Sprintf("%s Hashing %s", r.Strategy, dist)
}

// WriteCSV writes three records per result: its title, the labels and the
// values.
func WriteCSV(w io.Writer, dist keygen.Distribution, results []experiment.Result) error {
	cw := csv.NewWriter(w)
	for _, r := range results {
		if err := cw.Write([]string{Title(r, dist)}); err != nil {
			return errors.Wrap(err, "writing title")
		}
		if err := cw.Write(labels); err != nil {
			return errors.Wrap(err, "writing labels")
		}
		if err := cw.Write(Values(r)); err != nil {
			return errors.Wrap(err, "writing values")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing report")
}

// Print writes a human readable block per result, preceded by a summary of
// the keys.
func Print(w io.Writer, dist keygen.Distribution, sum keygen.Summary, results []experiment.Result) error {
	if _, err := fmt.Fprintf(w, "Experiment with %d keys (%s): %d distinct in [%d, %d]\n",
		sum.Count, dist, sum.Distinct, sum.Min, sum.Max); err != nil {
		return errors.Wrap(err, "printing summary")
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s Hashing (capacity %d)\n", r.Strategy, r.Capacity); err != nil {
			return errors.Wrap(err, "printing title")
		}
		for i, v := range Values(r) {
			if _, err := fmt.Fprintf(w, " %s: %s\n", labels[i], v); err != nil {
				return errors.Wrap(err, "printing values")
			}
		}
	}
	return nil
}
