// Copyright 2025 Poiesic Systems
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
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/kbimport"
	"github.com/poiesic/kbimport/config"
	"github.com/poiesic/kbimport/importer"
	"github.com/urfave/cli/v2"
)

func main() {
	// A .env file in the working directory feeds the flags' EnvVars lookup,
	// so it must be loaded before flag parsing. Real environment variables
	// win over the file.
	loadEnvFile()

	app := &cli.App{
		Name:      "kbimport",
		Usage:     "Bulk-import directories of documents into Open WebUI knowledge bases",
		ArgsUsage: "<directory>",
		Description: "Each subdirectory of <directory> becomes one knowledge base named " +
			"after the subdirectory. A directory containing only files becomes a single " +
			"knowledge base named after the directory itself.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Aliases: []string{"u"},
				Usage:   "Base URL of the Open WebUI instance",
				EnvVars: []string{config.EnvBaseURL},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Aliases: []string{"k"},
				Usage:   "API key for the Open WebUI instance",
				EnvVars: []string{config.EnvAPIKey},
			},
			&cli.StringSliceFlag{
				Name:    "extensions",
				Aliases: []string{"e"},
				Usage:   "Only import files with these extensions (repeatable; default: all files)",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Usage:   "Number of concurrent uploads per knowledge base",
				Value:   5,
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Show what would be imported without uploading anything",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum attempts for failed remote operations",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for each HTTP request",
				Value: 30 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "processing-wait",
				Usage: "How long to wait for the service to finish processing each upload (0 to skip)",
				Value: 60 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Action: importCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func importCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one directory argument is required", 2)
	}
	root := c.Args().First()

	cfg := config.New(
		config.WithBaseURL(c.String("base-url")),
		config.WithAPIKey(c.String("api-key")),
		config.WithExtensions(c.StringSlice("extensions")),
		config.WithConcurrency(c.Int("concurrency")),
		config.WithMaxAttempts(c.Int("max-retries")),
		config.WithRetryDelay(c.Duration("retry-delay")),
		config.WithTimeout(c.Duration("timeout")),
		config.WithProcessingWait(c.Duration("processing-wait")),
		config.WithDryRun(c.Bool("dry-run")),
	)

	// Ctrl-C cancels the run; in-flight uploads finish and the summary still
	// prints with the remaining files marked skipped.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := kbimport.Run(ctx, cfg, root)
	if err != nil {
		if errors.Is(err, importer.ErrServiceUnavailable) {
			return cli.Exit(fmt.Sprintf("cannot reach %s: %v", cfg.BaseURL, err), 1)
		}
		return cli.Exit(err.Error(), 2)
	}

	if !summary.OK() {
		return cli.Exit("", 1)
	}
	return nil
}

// loadEnvFile loads a .env file from the working directory into the process
// environment when one exists. Variables that are already set are kept.
func loadEnvFile() {
	_ = godotenv.Load()
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
