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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsrds "github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/sirseerhq/rds-pgbadger/internal/awserror"
	apperrors "github.com/sirseerhq/rds-pgbadger/internal/errors"
	"github.com/sirseerhq/rds-pgbadger/internal/portion"
)

// API is the subset of the SDK's RDS client used by SDKClient.
type API interface {
	DescribeDBLogFiles(ctx context.Context, params *awsrds.DescribeDBLogFilesInput, optFns ...func(*awsrds.Options)) (*awsrds.DescribeDBLogFilesOutput, error)
	DownloadDBLogFilePortion(ctx context.Context, params *awsrds.DownloadDBLogFilePortionInput, optFns ...func(*awsrds.Options)) (*awsrds.DownloadDBLogFilePortionOutput, error)
}

// SDKClient implements Client on top of the AWS SDK for Go v2.
type SDKClient struct {
	api       API
	inspector awserror.Inspector
}

// NewSDKClient wraps an SDK RDS client.
func NewSDKClient(api API) *SDKClient {
	return &SDKClient{
		api:       api,
		inspector: awserror.NewInspector(),
	}
}

// DescribeLogFiles lists one page of log files for the instance.
func (c *SDKClient) DescribeLogFiles(ctx context.Context, instance string, opts ListOptions) (*LogFilePage, error) {
	input := &awsrds.DescribeDBLogFilesInput{
		DBInstanceIdentifier: aws.String(instance),
	}
	if opts.FilenameContains != "" {
		input.FilenameContains = aws.String(opts.FilenameContains)
	}
	if opts.Marker != "" {
		input.Marker = aws.String(opts.Marker)
	}

	out, err := c.api.DescribeDBLogFiles(ctx, input)
	if err != nil {
		return nil, c.mapError(err, instance)
	}

	page := &LogFilePage{
		Files:  make([]LogFile, 0, len(out.DescribeDBLogFiles)),
		Marker: aws.ToString(out.Marker),
	}
	for _, d := range out.DescribeDBLogFiles {
		f := LogFile{
			Name: aws.ToString(d.LogFileName),
			Size: aws.ToInt64(d.Size),
		}
		if d.LastWritten != nil {
			f.LastWritten = time.UnixMilli(*d.LastWritten).UTC()
		}
		page.Files = append(page.Files, f)
	}

	return page, nil
}

// DownloadPortion downloads one portion of a log file.
func (c *SDKClient) DownloadPortion(ctx context.Context, instance, file string, opts PortionOptions) (*portion.Portion, error) {
	lines := opts.Lines
	if lines > math.MaxInt32 {
		lines = math.MaxInt32
	}

	out, err := c.api.DownloadDBLogFilePortion(ctx, &awsrds.DownloadDBLogFilePortionInput{
		DBInstanceIdentifier: aws.String(instance),
		LogFileName:          aws.String(file),
		Marker:               aws.String(opts.Marker),
		NumberOfLines:        aws.Int32(int32(lines)),
	})
	if err != nil {
		return nil, c.mapError(err, instance)
	}

	return &portion.Portion{
		Data:    aws.ToString(out.LogFileData),
		Marker:  aws.ToString(out.Marker),
		Pending: aws.ToBool(out.AdditionalDataPending),
	}, nil
}

// mapError maps SDK errors to our domain errors with actionable messages
func (c *SDKClient) mapError(err error, instance string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if c.inspector.IsNoRegionError(err) {
		return fmt.Errorf("No region provided. Use --region or configure a default region: %w", apperrors.ErrNoRegion)
	}

	if c.inspector.IsPartialCredentialsError(err) {
		return fmt.Errorf("Partial credentials, please check your credentials file: %w", apperrors.ErrPartialCredentials)
	}

	if c.inspector.IsCredentialsError(err) {
		return fmt.Errorf("Missing credentials. Configure a profile, environment variables or an instance role: %w", apperrors.ErrNoCredentials)
	}

	if c.inspector.IsAccessDeniedError(err) {
		return fmt.Errorf("access to RDS instance '%s' was denied (%v): %w", instance, err, apperrors.ErrAccessDenied)
	}

	if c.inspector.IsNotFoundError(err) {
		return fmt.Errorf("DB instance '%s' not found. Please check the identifier and region: %w", instance, apperrors.ErrInstanceNotFound)
	}

	if c.inspector.IsNetworkError(err) {
		return fmt.Errorf("network error connecting to the RDS API (%v): %w", err, apperrors.ErrNetworkFailure)
	}

	return fmt.Errorf("RDS request failed: %w", err)
}
