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

// Package main implements the rds-pgbadger command-line interface.
// This tool downloads the PostgreSQL log files of an Amazon RDS instance
// and runs pgbadger over them to produce a report.
//
// The CLI supports:
//   - Restricting the download to a single day with --date
//   - Region, profile and assume-role selection
//   - Skipping the report with --no-process
//   - Passing extra arguments to pgbadger and choosing the report format
//   - Publishing the report to S3 and writing Prometheus textfile metrics
//
// Usage:
//
//	rds-pgbadger <instance> [flags]
//
// Example:
//
//	rds-pgbadger mydb --date 2024-01-01 --region us-east-1 --format html
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Configuration or authorization error
//   - 3: Network error
//   - 4: A truncated log portion made no progress
package main
