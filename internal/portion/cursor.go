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

package portion

import (
	"fmt"
	"strings"

	apperrors "github.com/sirseerhq/rds-pgbadger/internal/errors"
)

const (
	// StartMarker is the marker RDS accepts for the beginning of a log file.
	StartMarker = "0"

	// DefaultInitialLines is the window requested for every fresh portion.
	DefaultInitialLines = 10000

	// TruncationNotice is what RDS appends in place of the data it dropped
	// when a portion exceeds its size limit.
	TruncationNotice = "[Your log message was truncated]"
)

// State names where the download of a single file stands after a Step.
type State int

const (
	// StateFetching means the last portion was accepted and the next one
	// should be requested from the advanced marker.
	StateFetching State = iota
	// StateRetryingSmaller means the last portion was truncated and must be
	// requested again from the same marker with fewer lines.
	StateRetryingSmaller
	// StateDone means the file has been read completely.
	StateDone
	// StateFailed means no further progress is possible.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateRetryingSmaller:
		return "retrying_smaller"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Cursor is the per-file download position.
type Cursor struct {
	// Marker is the opaque continuation token for the next request.
	Marker string
	// Lines is the number of lines to request next. Always positive.
	Lines int
	// Initial is the ceiling Lines returns to after an intact portion.
	Initial int
}

// NewCursor returns a cursor positioned at the start of a file. A
// non-positive initial window falls back to DefaultInitialLines.
func NewCursor(initial int) Cursor {
	if initial <= 0 {
		initial = DefaultInitialLines
	}
	return Cursor{
		Marker:  StartMarker,
		Lines:   initial,
		Initial: initial,
	}
}

// Portion is one DownloadDBLogFilePortion response.
type Portion struct {
	Data    string
	Marker  string
	Pending bool
}

// Truncated reports whether the payload ends with the RDS truncation notice.
func (p Portion) Truncated() bool {
	return strings.HasSuffix(strings.TrimRight(p.Data, "\r\n"), TruncationNotice)
}

// Lines counts the newline-terminated lines in the payload.
func (p Portion) Lines() int {
	return strings.Count(p.Data, "\n")
}

// Final reports whether the portion signals the end of the file: nothing
// but whitespace was returned and RDS has no more data pending.
func (p Portion) Final() bool {
	return strings.TrimSpace(p.Data) == "" && !p.Pending
}

// Decision tells the caller what to do with the portion it just received.
type Decision struct {
	State State
	// Write is true when the portion's data belongs in the output file.
	Write bool
}

// Step applies one portion to the cursor and returns the decision together
// with the cursor for the next request.
//
// A truncated portion is never written and never advances the marker. The
// next window is half the number of lines that actually arrived, floored at
// one and always below the window that produced the truncation. A truncated
// portion without a single complete line fails with ErrNoProgress.
//
// An intact portion is written, the marker moves to the one RDS returned and
// the window resets to the initial ceiling. The download is done once an
// intact portion is empty after trimming and RDS reports nothing pending.
func Step(c Cursor, p Portion) (Decision, Cursor, error) {
	if p.Truncated() {
		count := p.Lines()
		if count == 0 {
			return Decision{State: StateFailed}, c,
				fmt.Errorf("truncated portion at marker %s with %d lines requested: %w",
					c.Marker, c.Lines, apperrors.ErrNoProgress)
		}

		next := c
		next.Lines = shrink(count, c.Lines)
		return Decision{State: StateRetryingSmaller}, next, nil
	}

	next := c
	next.Marker = p.Marker
	next.Lines = c.Initial

	if p.Final() {
		return Decision{State: StateDone, Write: true}, next, nil
	}
	return Decision{State: StateFetching, Write: true}, next, nil
}

// shrink halves the observed line count, floored at 1 and kept below the
// window that was just requested.
func shrink(observed, requested int) int {
	lines := observed / 2
	if half := requested / 2; lines > half {
		lines = half
	}
	if lines < 1 {
		lines = 1
	}
	return lines
}
