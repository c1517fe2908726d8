// Copyright 2026 Rui Dias
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


package main

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/rpad300/docpipe/chunk"
)

func findStringFlag(flags []cli.Flag, name string) *cli.StringFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func findIntFlag(flags []cli.Flag, name string) *cli.IntFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.IntFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func TestEngineFlags(t *testing.T) {
	flags := engineFlags()

	t.Run("db is required", func(t *testing.T) {
		dbFlag := findStringFlag(flags, "db")
		require.NotNil(t, dbFlag)
		assert.True(t, dbFlag.Required)
	})

	t.Run("model is required", func(t *testing.T) {
		modelFlag := findStringFlag(flags, "model")
		require.NotNil(t, modelFlag)
		assert.True(t, modelFlag.Required)
		assert.Empty(t, modelFlag.Value)
	})

	t.Run("host has local default", func(t *testing.T) {
		hostFlag := findStringFlag(flags, "host")
		require.NotNil(t, hostFlag)
		assert.Equal(t, "http://localhost:11434/v1", hostFlag.Value)
	})

	t.Run("vision-model is optional", func(t *testing.T) {
		visionFlag := findStringFlag(flags, "vision-model")
		require.NotNil(t, visionFlag)
		assert.False(t, visionFlag.Required)
		assert.Empty(t, visionFlag.Value)
	})

	t.Run("chunking flags default to package values", func(t *testing.T) {
		maxFlag := findIntFlag(flags, "max-chars")
		require.NotNil(t, maxFlag)
		assert.Equal(t, chunk.DefaultMaxChars, maxFlag.Value)

		overlapFlag := findIntFlag(flags, "overlap")
		require.NotNil(t, overlapFlag)
		assert.Equal(t, chunk.DefaultOverlap, overlapFlag.Value)
	})
}

func TestProcessCommandRequiresModel(t *testing.T) {
	app := &cli.App{
		Name: "docpipe",
		Commands: []*cli.Command{
			{
				Name:   "process",
				Action: processCommand,
				Flags:  engineFlags(),
			},
		},
	}

	err := app.Run([]string{"docpipe", "process", "--db", "/tmp/test", "file.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app := &cli.App{
		Name: "docpipe",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Before: setupLogger,
		Action: func(c *cli.Context) error { return nil },
	}

	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			err := app.Run([]string{"docpipe", "--log-level", level})
			assert.NoError(t, err, "level %s", level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := app.Run([]string{"docpipe", "--log-level", "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
