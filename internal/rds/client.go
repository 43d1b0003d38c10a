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

import (
	"context"

	"github.com/sirseerhq/rds-pgbadger/internal/portion"
)

// Client defines the interface for reading log files through the RDS API.
// This interface allows for easy mocking in tests.
type Client interface {
	// DescribeLogFiles retrieves one page of the instance's log files. Follow
	// LogFilePage.Marker through opts.Marker to read the next page.
	DescribeLogFiles(ctx context.Context, instance string, opts ListOptions) (*LogFilePage, error)

	// DownloadPortion retrieves up to opts.Lines lines of a log file starting
	// at opts.Marker. The payload is returned as-is, truncation notice included.
	DownloadPortion(ctx context.Context, instance, file string, opts PortionOptions) (*portion.Portion, error)
}
