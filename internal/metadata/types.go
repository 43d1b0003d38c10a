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

// Package metadata types define the structures used for summarizing a run.
package metadata

import (
	"time"
)

// RunSummary is the complete record of a single run: what was asked for,
// what was downloaded and how many API calls it took.
type RunSummary struct {
	ToolVersion string       `json:"tool_version"`
	RunID       string       `json:"run_id"`
	Parameters  RunParams    `json:"parameters"`
	Results     RunResults   `json:"results"`
	Files       []FileResult `json:"files"`
}

// RunParams captures the input parameters of the run.
type RunParams struct {
	Instance     string `json:"instance"`
	Region       string `json:"region,omitempty"`
	Date         string `json:"date,omitempty"`
	OutputDir    string `json:"output_dir"`
	Format       string `json:"format"`
	NoProcess    bool   `json:"no_process"`
	InitialLines int    `json:"initial_lines"`
}

// RunResults contains the totals of a completed run.
type RunResults struct {
	FilesDownloaded   int       `json:"files_downloaded"`
	BytesWritten      int64     `json:"bytes_written"`
	APICallCount      int       `json:"api_calls_made"`
	TruncationRetries int       `json:"truncation_retries"`
	Report            string    `json:"report,omitempty"`
	ReportURL         string    `json:"report_url,omitempty"`
	Duration          string    `json:"duration"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`
}

// FileResult describes one downloaded log file.
type FileResult struct {
	Name      string `json:"name"`
	LocalPath string `json:"local_path"`
	Bytes     int64  `json:"bytes"`
	Portions  int    `json:"portions"`
	Retries   int    `json:"truncation_retries"`
}
