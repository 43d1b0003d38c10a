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

// Package fetch downloads the PostgreSQL log files of an RDS instance to a
// local directory. Files are listed page by page, filtered by date and then
// downloaded one at a time, portion by portion, following the cursor policy
// of package portion.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sirseerhq/rds-pgbadger/internal/metadata"
	"github.com/sirseerhq/rds-pgbadger/internal/output"
	"github.com/sirseerhq/rds-pgbadger/internal/portion"
	"github.com/sirseerhq/rds-pgbadger/internal/rds"
)

// DefaultFilenameFilter is the server-side filter that selects PostgreSQL logs.
const DefaultFilenameFilter = "postgresql.log"

// Operation names reported to observers.
const (
	OpDescribeLogFiles = "DescribeDBLogFiles"
	OpDownloadPortion  = "DownloadDBLogFilePortion"
)

// Options selects what a Run downloads.
type Options struct {
	Instance string

	// Date keeps only files whose name contains it. Empty keeps all files.
	Date string

	// FilenameFilter is sent to RDS with the listing. Empty means
	// DefaultFilenameFilter.
	FilenameFilter string

	OutputDir string

	// InitialLines is the window of a fresh portion request. Non-positive
	// means portion.DefaultInitialLines.
	InitialLines int
}

// Observer is notified as a run progresses.
type Observer interface {
	OnAPICall(operation string)
	OnTruncation(file string, requested, next int)
	OnFileDone(f metadata.FileResult)
}

// Fetcher downloads log files through an rds.Client.
type Fetcher struct {
	client    rds.Client
	open      output.Opener
	logger    *slog.Logger
	observers []Observer
	progress  *Progress
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithOpener replaces the local file writer.
func WithOpener(open output.Opener) Option {
	return func(f *Fetcher) {
		f.open = open
	}
}

// WithObserver adds an observer. Nil observers are ignored.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) {
		if o != nil {
			f.observers = append(f.observers, o)
		}
	}
}

// WithProgress draws a progress line while downloading.
func WithProgress(p *Progress) Option {
	return func(f *Fetcher) {
		f.progress = p
	}
}

// New creates a Fetcher. A nil logger uses slog.Default().
func New(client rds.Client, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		client: client,
		open:   output.OpenFile,
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run lists the instance's log files and downloads every match, in the order
// RDS lists them. It stops at the first error; files already written stay on
// disk.
func (f *Fetcher) Run(ctx context.Context, opts Options) ([]metadata.FileResult, error) {
	filter := opts.FilenameFilter
	if filter == "" {
		filter = DefaultFilenameFilter
	}

	var (
		results []metadata.FileResult
		marker  string
		pageNum int
	)

	for {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		pageNum++
		page, err := f.client.DescribeLogFiles(ctx, opts.Instance, rds.ListOptions{
			FilenameContains: filter,
			Marker:           marker,
		})
		f.apiCall(OpDescribeLogFiles)
		if err != nil {
			return results, err
		}

		f.logger.Debug("log file page received",
			"instance", opts.Instance,
			"page", pageNum,
			"files", len(page.Files))

		for _, file := range page.Files {
			if !MatchesDate(file.Name, opts.Date) {
				continue
			}

			result, err := f.downloadFile(ctx, opts, file)
			if err != nil {
				return results, err
			}
			results = append(results, result)
			for _, o := range f.observers {
				o.OnFileDone(result)
			}
		}

		if page.Marker == "" {
			break
		}
		marker = page.Marker
	}

	return results, nil
}

// MatchesDate reports whether a log file belongs to the requested date. An
// empty date matches every file.
func MatchesDate(name, date string) bool {
	return date == "" || strings.Contains(name, date)
}

func (f *Fetcher) downloadFile(ctx context.Context, opts Options, file rds.LogFile) (metadata.FileResult, error) {
	result := metadata.FileResult{Name: file.Name}

	path, err := output.LocalPath(opts.OutputDir, file.Name)
	if err != nil {
		return result, err
	}
	result.LocalPath = path

	f.logger.Info("downloading log file",
		"file", path,
		"size", humanize.Bytes(uint64(max(file.Size, 0))))

	w, err := f.open(opts.OutputDir, file.Name)
	if err != nil {
		return result, err
	}
	defer w.Close()

	start := time.Now()
	c := portion.NewCursor(opts.InitialLines)

	for {
		if err := ctx.Err(); err != nil {
			f.progress.Clear()
			return result, err
		}

		p, err := f.client.DownloadPortion(ctx, opts.Instance, file.Name, rds.PortionOptions{
			Marker: c.Marker,
			Lines:  c.Lines,
		})
		f.apiCall(OpDownloadPortion)
		if err != nil {
			f.progress.Clear()
			return result, fmt.Errorf("failed to download %s: %w", file.Name, err)
		}

		d, next, err := portion.Step(c, *p)
		if err != nil {
			f.progress.Clear()
			return result, fmt.Errorf("failed to download %s: %w", file.Name, err)
		}

		if d.State == portion.StateRetryingSmaller {
			f.progress.Clear()
			f.logger.Debug("portion truncated, requesting fewer lines",
				"file", file.Name,
				"marker", c.Marker,
				"requested", c.Lines,
				"lines", next.Lines)
			result.Retries++
			for _, o := range f.observers {
				o.OnTruncation(file.Name, c.Lines, next.Lines)
			}
		}

		if d.Write {
			if err := w.Write(p.Data); err != nil {
				f.progress.Clear()
				return result, err
			}
			result.Bytes += int64(len(p.Data))
			result.Portions++
			f.progress.Update(file.Name, result.Bytes, file.Size)
			f.logger.Debug("portion written",
				"file", file.Name,
				"marker", p.Marker,
				"bytes", len(p.Data),
				"pending", p.Pending)
		}

		if d.State == portion.StateDone {
			break
		}
		c = next
	}

	f.progress.Clear()
	f.logger.Debug("log file complete",
		"file", file.Name,
		"bytes", humanize.Bytes(uint64(result.Bytes)),
		"portions", result.Portions,
		"retries", result.Retries,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return result, nil
}

func (f *Fetcher) apiCall(op string) {
	for _, o := range f.observers {
		o.OnAPICall(op)
	}
}
