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

// Package metadata tracks statistics about a download run: the files written,
// the RDS API calls made and the truncation retries needed. The summary is
// only kept in memory and printed on request; nothing is persisted between
// runs.
package metadata

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
)

// Tracker collects statistics during a run. Create one at the start of a run
// and pass it to the fetcher, which reports every API call and finished file.
type Tracker struct {
	runID        string
	startTime    time.Time
	apiCallCount int
	retries      int
	files        []FileResult
	report       string
	reportURL    string
	now          func() time.Time
}

// New creates a new tracker with a fresh run ID.
func New() *Tracker {
	return &Tracker{
		runID:     uuid.NewString(),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// RunID returns the identifier of this run.
func (t *Tracker) RunID() string {
	return t.runID
}

// OnAPICall records that an RDS API call was made.
func (t *Tracker) OnAPICall(string) {
	t.apiCallCount++
}

// OnTruncation records a truncated portion that will be requested again.
func (t *Tracker) OnTruncation(string, int, int) {
	t.retries++
}

// OnFileDone records a completely downloaded file.
func (t *Tracker) OnFileDone(f FileResult) {
	t.files = append(t.files, f)
}

// SetReport records the generated report and, when published, its URL.
func (t *Tracker) SetReport(path, url string) {
	t.report = path
	t.reportURL = url
}

// Generate creates the summary of the run so far.
func (t *Tracker) Generate(toolVersion string, params RunParams) *RunSummary {
	completedAt := t.now()

	var bytes int64
	for _, f := range t.files {
		bytes += f.Bytes
	}

	files := make([]FileResult, len(t.files))
	copy(files, t.files)

	return &RunSummary{
		ToolVersion: toolVersion,
		RunID:       t.runID,
		Parameters:  params,
		Results: RunResults{
			FilesDownloaded:   len(t.files),
			BytesWritten:      bytes,
			APICallCount:      t.apiCallCount,
			TruncationRetries: t.retries,
			Report:            t.report,
			ReportURL:         t.reportURL,
			Duration:          completedAt.Sub(t.startTime).String(),
			StartedAt:         t.startTime,
			CompletedAt:       completedAt,
		},
		Files: files,
	}
}

// WriteSummary serializes a summary as indented JSON.
func WriteSummary(summary *RunSummary, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
