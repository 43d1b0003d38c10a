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

// Package rds provides a client for the two RDS management API operations
// needed to read PostgreSQL logs: listing an instance's log files and
// downloading one file portion by portion.
//
// The package includes:
//   - A Client interface for listing and downloading log files
//   - An implementation on top of the AWS SDK for Go v2
//   - A Connector that resolves region, profile and assumed role into a
//     ready client, failing early on configuration problems
//   - A mock client for testing
//
// Basic usage:
//
//	sess, err := rds.NewSDKConnector(logger).Connect(ctx, rds.SessionOptions{
//	    Region: "eu-west-1",
//	})
//	if err != nil {
//	    // Handle error
//	}
//	page, err := sess.Client.DescribeLogFiles(ctx, "mydb", rds.ListOptions{
//	    FilenameContains: "postgresql.log",
//	})
package rds
