// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
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
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sirseerhq/rds-pgbadger/internal/config"
	"github.com/sirseerhq/rds-pgbadger/internal/fetch"
	"github.com/sirseerhq/rds-pgbadger/internal/metadata"
	"github.com/sirseerhq/rds-pgbadger/internal/metrics"
	"github.com/sirseerhq/rds-pgbadger/internal/publish"
	"github.com/sirseerhq/rds-pgbadger/internal/rds"
	"github.com/sirseerhq/rds-pgbadger/internal/report"
)

var errInvalidDate = errors.New("invalid date")

// deps are the collaborators of a run that tests replace.
type deps struct {
	connector   func(*slog.Logger) rds.Connector
	runner      report.Runner
	newUploader func(aws.Config, *slog.Logger) *publish.Uploader
	progress    *fetch.Progress
	stdout      io.Writer
	stderr      io.Writer
	dotenv      []string
}

func defaultDeps() deps {
	return deps{
		connector: func(logger *slog.Logger) rds.Connector {
			return rds.NewSDKConnector(logger)
		},
		runner:      report.NewShellRunner(),
		newUploader: publish.NewS3Uploader,
		progress:    fetch.TerminalProgress(),
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		dotenv:      []string{".env"},
	}
}

// runOptions holds the flag values. Only flags the user set override
// configuration.
type runOptions struct {
	date         string
	region       string
	profile      string
	assumeRole   string
	outputDir    string
	noProcess    bool
	pgbadgerArgs string
	format       string
	verbose      bool
	configPath   string
	pgbadger     string
	endpoint     string
	upload       string
	metricsFile  string
	summary      bool
}

func newRootCommand(d deps) *cobra.Command {
	var opts runOptions
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "rds-pgbadger <instance>",
		Short: "Download PostgreSQL logs from Amazon RDS and build a pgbadger report",
		Long: `rds-pgbadger downloads the PostgreSQL log files of an Amazon RDS instance
into a local directory and runs pgbadger over them.

Log files are fetched portion by portion. When RDS truncates a portion the
same position is requested again with fewer lines, so long log lines are
never lost.

AWS credentials and region are resolved the way the AWS CLI resolves them:
flags, environment variables, then the shared config and credentials files.`,
		Args:          cobra.ExactArgs(1),
		Version:       version,
		SilenceUsage:  true, // Don't show usage on error
		SilenceErrors: true, // We'll handle error printing ourselves
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), d, cmd.Flags(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.date, "date", "d", "", "only download log files for this day (YYYY-MM-DD)")
	flags.StringVarP(&opts.region, "region", "r", "", "AWS region")
	flags.StringVar(&opts.profile, "profile", "", "AWS shared config profile")
	flags.StringVar(&opts.assumeRole, "assume-role", "", "ARN of a role to assume with STS")
	flags.StringVarP(&opts.outputDir, "output", "o", defaults.Download.OutputDir, "output directory for logs and the report")
	flags.BoolVarP(&opts.noProcess, "no-process", "n", false, "download logs only, do not run pgbadger")
	flags.StringVar(&opts.pgbadgerArgs, "pgbadger-args", "", "extra arguments passed to pgbadger as is")
	flags.StringVarP(&opts.format, "format", "f", defaults.Report.Format, "report format: text, html, bin, json or tsung")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.configPath, "config", "", "configuration file (YAML or TOML)")
	flags.StringVar(&opts.pgbadger, "pgbadger", defaults.Report.Binary, "pgbadger binary name or path")
	flags.StringVar(&opts.endpoint, "endpoint", "", "RDS API endpoint override")
	flags.StringVar(&opts.upload, "upload", "", "publish the report to s3://bucket/prefix")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	flags.BoolVar(&opts.summary, "summary", false, "print a JSON run summary to stdout")

	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig layers defaults, config file, environment and changed flags.
func loadConfig(d deps, flags *pflag.FlagSet, instance string, opts runOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(d.dotenv...); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfigForInstance(opts.configPath, instance)
	if err != nil {
		return nil, err
	}

	strs := map[string]struct {
		src string
		dst *string
	}{
		"region":        {opts.region, &cfg.AWS.Region},
		"profile":       {opts.profile, &cfg.AWS.Profile},
		"assume-role":   {opts.assumeRole, &cfg.AWS.AssumeRole},
		"endpoint":      {opts.endpoint, &cfg.AWS.Endpoint},
		"output":        {opts.outputDir, &cfg.Download.OutputDir},
		"format":        {opts.format, &cfg.Report.Format},
		"pgbadger":      {opts.pgbadger, &cfg.Report.Binary},
		"pgbadger-args": {opts.pgbadgerArgs, &cfg.Report.Args},
		"upload":        {opts.upload, &cfg.Publish.S3URL},
		"metrics-file":  {opts.metricsFile, &cfg.Metrics.File},
	}
	for name, f := range strs {
		if flags.Changed(name) {
			*f.dst = f.src
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("not a valid date: '%s', expected YYYY-MM-DD: %w", date, errInvalidDate)
	}
	return nil
}

func run(ctx context.Context, d deps, flags *pflag.FlagSet, instance string, opts runOptions) (err error) {
	logger := newLogger(d.stderr, opts.verbose)

	if err := validateDate(opts.date); err != nil {
		return err
	}

	cfg, err := loadConfig(d, flags, instance, opts)
	if err != nil {
		return err
	}

	// Everything that can be checked locally is checked before the first
	// network call.
	var reportCmd report.Command
	if !opts.noProcess {
		bin, err := report.Locate(cfg.Report.Binary)
		if err != nil {
			return err
		}
		reportCmd, err = report.NewCommand(bin, cfg.Download.OutputDir, cfg.Report.Format, cfg.Report.Args)
		if err != nil {
			return err
		}
		reportCmd.Prefix = cfg.Report.Prefix
	}

	var dest *publish.Destination
	if cfg.Publish.S3URL != "" && !opts.noProcess {
		parsed, err := publish.ParseS3URL(cfg.Publish.S3URL)
		if err != nil {
			return err
		}
		dest = &parsed
	}

	tracker := metadata.New()
	observers := []fetch.Option{fetch.WithObserver(tracker), fetch.WithProgress(d.progress)}

	var recorder *metrics.Recorder
	if cfg.Metrics.File != "" {
		recorder = metrics.New(instance)
		observers = append(observers, fetch.WithObserver(recorder))
		defer func() {
			recorder.Finish(err, time.Now())
			if werr := recorder.WriteTextfile(cfg.Metrics.File); werr != nil {
				logger.Warn("failed to write metrics", "error", werr, "path", cfg.Metrics.File)
			}
		}()
	}

	logger = logger.With("run_id", tracker.RunID())

	session, err := d.connector(logger).Connect(ctx, rds.SessionOptions{
		Region:      cfg.AWS.Region,
		Profile:     cfg.AWS.Profile,
		AssumeRole:  cfg.AWS.AssumeRole,
		Endpoint:    cfg.AWS.Endpoint,
		MaxAttempts: cfg.AWS.MaxAttempts,
	})
	if err != nil {
		return err
	}

	logger.Info("downloading logs",
		"instance", instance,
		"region", session.Config.Region,
		"date", opts.date,
		"output", cfg.Download.OutputDir)

	start := time.Now()
	fetcher := fetch.New(session.Client, logger, observers...)
	files, err := fetcher.Run(ctx, fetch.Options{
		Instance:       instance,
		Date:           opts.date,
		FilenameFilter: cfg.Download.FilenameFilter,
		OutputDir:      cfg.Download.OutputDir,
		InitialLines:   cfg.Download.InitialLines,
	})
	if recorder != nil {
		recorder.ObservePhase("download", time.Since(start))
	}
	if err != nil {
		return err
	}

	var total int64
	for _, f := range files {
		total += f.Bytes
	}
	logger.Info("download complete",
		"files", len(files),
		"size", humanize.Bytes(uint64(total)),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if !opts.noProcess {
		if err := generateReport(ctx, d, logger, session, reportCmd, dest, tracker, recorder); err != nil {
			return err
		}
	}

	if opts.summary {
		summary := tracker.Generate(version, metadata.RunParams{
			Instance:     instance,
			Region:       session.Config.Region,
			Date:         opts.date,
			OutputDir:    cfg.Download.OutputDir,
			Format:       cfg.Report.Format,
			NoProcess:    opts.noProcess,
			InitialLines: cfg.Download.InitialLines,
		})
		if err := metadata.WriteSummary(summary, d.stdout); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	return nil
}

func generateReport(ctx context.Context, d deps, logger *slog.Logger, session *rds.Session,
	cmd report.Command, dest *publish.Destination, tracker *metadata.Tracker, recorder *metrics.Recorder) error {
	start := time.Now()
	path, err := report.NewInvoker(d.runner, logger).Generate(ctx, cmd)
	if recorder != nil {
		recorder.ObservePhase("report", time.Since(start))
	}
	if err != nil {
		return err
	}

	var url string
	if dest != nil {
		start = time.Now()
		url, err = d.newUploader(session.Config, logger).Upload(ctx, *dest, path, tracker.RunID())
		if recorder != nil {
			recorder.ObservePhase("upload", time.Since(start))
		}
		if err != nil {
			return err
		}
	}

	tracker.SetReport(path, url)
	return nil
}
