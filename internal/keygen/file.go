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

package keygen

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Write writes keys in the key-set format: the number of keys on the first
// line, then the keys separated by single spaces on the second.
func Write(w io.Writer, keys []uint32) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strconv.Itoa(len(keys)))
	bw.WriteByte('\n')
	var buf []byte
	for i, k := range keys {
		buf = strconv.AppendUint(buf[:0], uint64(k), 10)
		if i < len(keys)-1 {
			buf = append(buf, ' ')
		} else {
			buf = append(buf, '\n')
		}
		bw.Write(buf)
	}
	return bw.Flush()
}

// Read parses a key set written by Write.
func Read(r io.Reader) ([]uint32, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	sc.Split(bufio.ScanWords)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(err, "reading key count")
		}
		return nil, errors.New("empty key set")
	}
	n, err := strconv.Atoi(sc.Text())
	if err != nil || n < 0 {
		return nil, errors.Newf("invalid key count %q", sc.Text())
	}

	keys := make([]uint32, 0, n)
	for sc.Scan() {
		k, err := strconv.ParseUint(sc.Text(), 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "key %d", len(keys))
		}
		keys = append(keys, uint32(k))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading keys")
	}
	if len(keys) != n {
		return nil, errors.Newf("key set declares %d keys, found %d", n, len(keys))
	}
	return keys, nil
}

// WriteFile writes keys to the file at path, replacing it.
func WriteFile(path string, keys []uint32) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating key file %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "closing key file %s", path)
		}
	}()
	if err := Write(f, keys); err != nil {
		return errors.Wrapf(err, "writing key file %s", path)
	}
	return nil
}

// ReadFile reads a key set from the file at path.
func ReadFile(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening key file %s", path)
	}
	defer f.Close()
	keys, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "key file %s", path)
	}
	return keys, nil
}
