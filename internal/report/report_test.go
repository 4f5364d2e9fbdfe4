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

package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/fibhash"
	"github.com/cockroachdb/fibhash/internal/experiment"
	"github.com/cockroachdb/fibhash/internal/keygen"
	"github.com/stretchr/testify/require"
)

func chainResult() experiment.Result {
	t := fibhash.New(8, fibhash.Modulo)
	for _, k := range []uint32{1, 9, 17} {
		t.Insert(k)
	}
	t.Search(17)
	return experiment.Result{
		Strategy:   fibhash.Modulo,
		InsertTime: 1500 * time.Nanosecond,
		SearchTime: 2 * time.Microsecond,
		RemoveTime: 0,
		Capacity:   t.Capacity(),
		Stats:      t.Stats(),
	}
}

func TestValues(t *testing.T) {
	require.Len(t, Labels(), 10)
	require.Equal(t, []string{
		"1.50 µs", "2.00 µs", "0.00 µs",
		"66.67%",
		"1.00", "2.00", "0.00",
		"2", "2", "0",
	}, Values(chainResult()))

	// Labels returns a copy.
	l := Labels()
	l[0] = "x"
	require.Equal(t, "Time for insert", Labels()[0])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	r := chainResult()
	require.NoError(t, WriteCSV(&buf, keygen.ModuloSensitive, []experiment.Result{r, r}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	require.Equal(t, "Modulo Hashing Modulo_Sensitive", lines[0])
	require.Equal(t, strings.Join(Labels(), ","), lines[1])
	require.Equal(t, "1.50 µs,2.00 µs,0.00 µs,66.67%,1.00,2.00,0.00,2,2,0", lines[2])
	require.Equal(t, lines[:3], lines[3:])
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	sum := keygen.Summarize([]uint32{1, 9, 17})
	require.NoError(t, Print(&buf, keygen.Random, sum, []experiment.Result{chainResult()}))
	require.Equal(t, `Experiment with 3 keys (Random): 3 distinct in [1, 17]
Modulo Hashing (capacity 8)
 Time for insert: 1.50 µs
 Time for search: 2.00 µs
 Time for remove: 0.00 µs
 Collision rate: 66.67%
 Average Probe Length (insert): 1.00
 Average Probe Length (search): 2.00
 Average Probe Length (remove): 0.00
 Maximum Probe Length (insert): 2
 Maximum Probe Length (search): 2
 Maximum Probe Length (remove): 0
`, buf.String())
}
