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
	"os"
	"os/signal"
	"syscall"

	apperrors "github.com/sirseerhq/rds-pgbadger/internal/errors"
	"github.com/sirseerhq/rds-pgbadger/internal/publish"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCommand(defaultDeps())

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(mapErrorToExitCode(err))
	}
}

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, apperrors.ErrNoProgress) {
		return 4 // Truncation stall
	}

	if errors.Is(err, apperrors.ErrNetworkFailure) {
		return 3 // Network errors
	}

	for _, target := range []error{
		apperrors.ErrNoRegion,
		apperrors.ErrNoCredentials,
		apperrors.ErrPartialCredentials,
		apperrors.ErrAccessDenied,
		apperrors.ErrInstanceNotFound,
		apperrors.ErrPgBadgerNotFound,
		apperrors.ErrInvalidFormat,
		errInvalidDate,
		publish.ErrInvalidURL,
	} {
		if errors.Is(err, target) {
			return 2 // Configuration/authorization errors
		}
	}

	return 1 // General error
}
