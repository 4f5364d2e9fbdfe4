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

package logutil

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogConfigGetters(t *testing.T) {
	cfg := DefaultLogConfig()
	level, err := cfg.getLevel()
	require.NoError(t, err)
	require.Equal(t, zap.NewAtomicLevelAt(zap.InfoLevel).Level(), level.Level())
	require.Len(t, cfg.getOptions(), 2)
	require.Equal(t, getConsoleSyncer(), cfg.getSyncer())

	cfg.Level = "verbose"
	_, err = cfg.getLevel()
	require.Error(t, err)
}

func TestLoggerEncoder(t *testing.T) {
	entry := zapcore.Entry{Level: zapcore.InfoLevel, Message: "phase done"}
	fields := []zap.Field{zap.String("op", "insert")}

	testCases := []struct {
		format string
		want   *regexp.Regexp
	}{
		{"console", regexp.MustCompile(`INFO\tphase done\t\{"op": "insert"\}`)},
		{"json", regexp.MustCompile(`"level":"info".*"msg":"phase done","op":"insert"`)},
	}
	for _, c := range testCases {
		t.Run(c.format, func(t *testing.T) {
			enc, err := getLoggerEncoder(c.format)
			require.NoError(t, err)
			buf, err := enc.EncodeEntry(entry, fields)
			require.NoError(t, err)
			require.Regexp(t, c.want, buf.String())
		})
	}

	_, err := getLoggerEncoder("xml")
	require.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	prev := GetGlobalLogger()
	defer globalLogger.Store(prev)

	dir := t.TempDir()
	cfg := &LogConfig{
		Level:    "debug",
		Format:   "json",
		Filename: filepath.Join(dir, "fibhash.log"),
		MaxSize:  1,
	}
	logger, err := SetupLogger(cfg)
	require.NoError(t, err)
	require.Same(t, logger, GetGlobalLogger())

	logger.Debug("hello", zap.Int("n", 1))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(cfg.Filename)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello","n":1`)

	_, err = SetupLogger(&LogConfig{Format: "xml"})
	require.Error(t, err)
	require.Same(t, logger, GetGlobalLogger())
}
