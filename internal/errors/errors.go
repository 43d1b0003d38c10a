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

// Package errors defines sentinel errors for consistent error handling across the application.
// These errors map to specific exit codes in the CLI for proper scripting support.
package errors

import "errors"

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrNoRegion indicates no AWS region could be resolved from flags,
	// configuration, environment or the shared config profile.
	// Maps to exit code 2.
	ErrNoRegion = errors.New("no region provided")

	// ErrNoCredentials indicates the credential chain produced nothing usable.
	// Maps to exit code 2.
	ErrNoCredentials = errors.New("missing credentials")

	// ErrPartialCredentials indicates only part of a static key pair was configured.
	// Maps to exit code 2.
	ErrPartialCredentials = errors.New("partial credentials, please check your credentials file")

	// ErrAccessDenied indicates the credentials are valid but not allowed to
	// read the instance logs.
	// Maps to exit code 2.
	ErrAccessDenied = errors.New("access denied")

	// ErrInstanceNotFound indicates the DB instance identifier does not exist
	// in the resolved account and region.
	// Maps to exit code 2.
	ErrInstanceNotFound = errors.New("db instance not found")

	// ErrNetworkFailure indicates the RDS endpoint could not be reached.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrNoProgress indicates a truncated portion contained no complete line,
	// so shrinking the window further cannot make progress.
	// Maps to exit code 4.
	ErrNoProgress = errors.New("no line was downloaded in last portion")

	// ErrPgBadgerNotFound indicates the report binary is not on PATH.
	// Maps to exit code 2.
	ErrPgBadgerNotFound = errors.New("pgbadger not found")

	// ErrInvalidFormat indicates an unsupported report format was requested.
	// Maps to exit code 2.
	ErrInvalidFormat = errors.New("invalid report format")
)
