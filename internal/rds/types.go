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

package rds

import "time"

// LogFile describes one log file of a DB instance as returned by the listing.
// Size and LastWritten are informational; they are zero when RDS omits them.
type LogFile struct {
	Name        string
	Size        int64
	LastWritten time.Time
}

// LogFilePage is one page of the log file listing. Marker is empty on the
// last page.
type LogFilePage struct {
	Files  []LogFile
	Marker string
}

// ListOptions configures a DescribeLogFiles call.
type ListOptions struct {
	// FilenameContains is the server-side name filter.
	FilenameContains string

	// Marker continues a previous listing. Empty starts from the beginning.
	Marker string
}

// PortionOptions configures a DownloadPortion call.
type PortionOptions struct {
	// Marker is the continuation token. "0" reads from the start of the file.
	Marker string

	// Lines is the maximum number of lines to return.
	Lines int
}
