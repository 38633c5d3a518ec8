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

// Package kbimport imports directory trees into a remote knowledge service
// as knowledge bases.
//
// A root directory with subdirectories becomes one knowledge base per
// subdirectory; a root with only files becomes a single knowledge base named
// after the root. Run scans, previews, and imports in one call:
//
//	cfg := config.FromEnv()
//	summary, err := kbimport.Run(ctx, cfg, "/data/docs")
//
// The packages underneath are usable on their own: scanner builds plans,
// importer executes them, and remote/webui speaks the service API.
package kbimport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/kbimport/config"
	"github.com/poiesic/kbimport/core"
	"github.com/poiesic/kbimport/importer"
	"github.com/poiesic/kbimport/remote"
	"github.com/poiesic/kbimport/remote/webui"
	"github.com/poiesic/kbimport/retry"
	"github.com/poiesic/kbimport/scanner"
)

// RunOption configures a Run call.
type RunOption func(*runOptions)

type runOptions struct {
	service remote.Service
	output  io.Writer
	logger  *slog.Logger
}

// WithService substitutes the remote service, bypassing the HTTP client
// built from the configuration. Intended for tests.
func WithService(service remote.Service) RunOption {
	return func(o *runOptions) {
		o.service = service
	}
}

// WithOutput redirects the preview, progress, and summary output.
// Default is os.Stdout.
func WithOutput(w io.Writer) RunOption {
	return func(o *runOptions) {
		o.output = w
	}
}

// WithLogger sets the logger for the run. Default is slog.Default().
func WithLogger(logger *slog.Logger) RunOption {
	return func(o *runOptions) {
		o.logger = logger
	}
}

// Run scans root, prints a preview, and imports the plan per cfg. The
// returned summary holds one outcome per scanned file; summary.OK reports
// whether the run as a whole counts as a success.
func Run(ctx context.Context, cfg *config.Config, root string, opts ...RunOption) (*core.ImportSummary, error) {
	options := &runOptions{
		output: os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	plan, err := scanner.Scan(root, cfg.Extensions)
	if err != nil {
		return nil, err
	}
	importer.Preview(options.output, plan)

	service := options.service
	if service == nil && !cfg.DryRun {
		service = webui.NewClient(cfg.BaseURL, cfg.APIKey,
			webui.WithTimeout(cfg.Timeout),
			webui.WithProcessingWait(cfg.ProcessingWait, cfg.ProcessingInterval),
			webui.WithLogger(options.logger),
		)
	}
	if service == nil {
		// Dry runs make no remote calls, but the importer still requires a
		// service; give it one that rejects everything.
		service = unreachableService{}
	}

	policy := retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.RetryDelay,
		Jitter:      retry.DefaultPolicy().Jitter,
	}

	imp, err := importer.New(service,
		importer.WithConcurrency(cfg.Concurrency),
		importer.WithRetryPolicy(policy),
		importer.WithDryRun(cfg.DryRun),
		importer.WithProgress(options.output),
		importer.WithLogger(options.logger),
	)
	if err != nil {
		return nil, err
	}

	summary, err := imp.Run(ctx, plan)
	if err != nil {
		return nil, err
	}
	importer.WriteSummary(options.output, summary)
	return summary, nil
}

var errNoService = errors.New("no remote service configured")

// unreachableService backs dry runs, which never reach the network.
type unreachableService struct{}

func (unreachableService) HealthCheck(context.Context) error { return errNoService }

func (unreachableService) CreateKnowledgeBase(context.Context, string) (string, error) {
	return "", errNoService
}

func (unreachableService) FindKnowledgeBase(context.Context, string) (string, bool, error) {
	return "", false, errNoService
}

func (unreachableService) UploadFile(context.Context, string, io.Reader) (string, error) {
	return "", errNoService
}

func (unreachableService) AddFileToKnowledgeBase(context.Context, string, string) error {
	return errNoService
}

var _ remote.Service = unreachableService{}
