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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rpad300/docpipe"
	"github.com/rpad300/docpipe/ai"
	"github.com/rpad300/docpipe/chunk"
	"github.com/rpad300/docpipe/ingestion"
	"github.com/rpad300/docpipe/scheduler"
)

func main() {
	app := &cli.App{
		Name:  "docpipe",
		Usage: "Extract structured knowledge from unstructured documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Process a single document file",
				ArgsUsage: "<file>",
				Action:    processCommand,
				Flags:     engineFlags(),
			},
			{
				Name:      "batch",
				Usage:     "Process a list of document files",
				ArgsUsage: "<file> [<file>...]",
				Action:    batchCommand,
				Flags:     engineFlags(),
			},
			{
				Name:   "watch",
				Usage:  "Poll for pending documents until interrupted",
				Action: watchCommand,
				Flags: append(engineFlags(),
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Polling interval",
						Value: 30 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "stuck-timeout",
						Usage: "Return processing documents older than this to pending",
						Value: 15 * time.Minute,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Worker pool size",
						Value: 2,
					},
				),
			},
			{
				Name:      "reprocess",
				Usage:     "Clear a document's extracted knowledge and run it again",
				ArgsUsage: "<id-or-filename>",
				Action:    reprocessCommand,
				Flags:     engineFlags(),
			},
			{
				Name:   "synthesize",
				Usage:  "Run a cross-document synthesis pass over completed documents",
				Action: synthesizeCommand,
				Flags:  engineFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// engineFlags are the flags shared by every command that opens the engine.
func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Model service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:     "model",
			Usage:    "Model name for text extraction",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "vision-model",
			Usage: "Model name for image inputs (vision disabled when empty)",
		},
		&cli.StringFlag{
			Name:  "content-dir",
			Usage: "Directory document filenames resolve against",
		},
		&cli.IntFlag{
			Name:  "max-chars",
			Usage: "Maximum characters per chunk",
			Value: chunk.DefaultMaxChars,
		},
		&cli.IntFlag{
			Name:  "overlap",
			Usage: "Characters of overlap between adjacent chunks",
			Value: chunk.DefaultOverlap,
		},
		&cli.Float64Flag{
			Name:  "min-confidence",
			Usage: "Drop extracted entries scored below this threshold",
			Value: 0.4,
		},
	}
}

func openEngine(c *cli.Context, extra ...docpipe.EngineOption) (*docpipe.Engine, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithModel(c.String("model")),
		ai.WithVisionModel(c.String("vision-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model configuration: %w", err)
	}

	opts := []docpipe.EngineOption{
		docpipe.WithAIConfig(aiConfig),
		docpipe.WithContentDir(c.String("content-dir")),
		docpipe.WithCoordinatorOptions(
			ingestion.WithChunker(chunk.New(c.Int("max-chars"), chunk.WithOverlap(c.Int("overlap")))),
			ingestion.WithMinConfidence(c.Float64("min-confidence")),
		),
	}
	opts = append(opts, extra...)

	return docpipe.New(c.String("db"), opts...)
}

func processCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	outcome, err := engine.ProcessFile(context.Background(), c.Args().First())
	if err != nil {
		return err
	}

	if outcome.Duplicate {
		fmt.Printf("duplicate of document %d (%s), skipped\n",
			outcome.Document.Id, outcome.Document.Filename)
		return nil
	}

	fmt.Printf("document %d completed: %d chunks (%d failed), %d items extracted\n",
		outcome.Document.Id, outcome.Chunks, outcome.FailedChunks, outcome.Result.ItemCount())
	if outcome.Resolved > 0 {
		fmt.Printf("resolved %d open question(s)\n", outcome.Resolved)
	}
	return nil
}

func batchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("expected at least one file argument")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.ProcessBatch(context.Background(), c.Args().Slice())
	if err != nil {
		return err
	}

	fmt.Printf("batch finished: %d processed, %d duplicates, %d failed\n",
		report.Processed, report.Duplicates, report.Failed)
	for path, itemErr := range report.Errors {
		fmt.Printf("  %s: %v\n", path, itemErr)
	}
	if s := report.Synthesis; s != nil {
		fmt.Printf("synthesis: %d documents, %d facts added, %d questions resolved\n",
			s.Documents, s.FactsAdded, s.Resolved)
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	engine, err := openEngine(c, docpipe.WithSchedulerOptions(
		scheduler.WithInterval(c.Duration("interval")),
		scheduler.WithStuckTimeout(c.Duration("stuck-timeout")),
		scheduler.WithPoolSize(c.Int("concurrency")),
	))
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.StartPolling(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	engine.StopPolling()
	stats := engine.SchedulerStats()
	fmt.Printf("stopped: %d processed, %d failed, %d deferred, %d stuck recovered\n",
		stats.Processed, stats.Failed, stats.Deferred, stats.Recovered)
	return nil
}

func reprocessCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected a document ID or filename argument")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	outcome, err := engine.Reprocess(context.Background(), c.Args().First())
	if err != nil {
		return err
	}

	fmt.Printf("document %d reprocessed: %d items extracted\n",
		outcome.Document.Id, outcome.Result.ItemCount())
	return nil
}

func synthesizeCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.Synthesize(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("synthesis finished: %d documents in %d group(s), %d facts added, %d questions resolved\n",
		report.Documents, report.Groups, report.FactsAdded, report.Resolved)
	if report.FailedGroups > 0 {
		fmt.Printf("%d group(s) failed and were skipped\n", report.FailedGroups)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
