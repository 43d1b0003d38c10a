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
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	awsrds "github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/sirseerhq/rds-pgbadger/internal/awserror"
	apperrors "github.com/sirseerhq/rds-pgbadger/internal/errors"
)

// SessionOptions selects how the AWS session is resolved. Empty fields defer
// to the SDK's default chain.
type SessionOptions struct {
	Region      string
	Profile     string
	AssumeRole  string
	Endpoint    string
	MaxAttempts int
}

// Session is a resolved AWS session.
type Session struct {
	// Client reads RDS log files.
	Client Client

	// Config is the resolved SDK configuration, reused for other services.
	Config aws.Config
}

// Connector resolves a Session. Implementations must fail before any RDS call
// when the region or credentials are unusable.
type Connector interface {
	Connect(ctx context.Context, opts SessionOptions) (*Session, error)
}

// SDKConnector resolves sessions through the SDK's shared config and
// credential chain.
type SDKConnector struct {
	logger    *slog.Logger
	inspector awserror.Inspector
}

// NewSDKConnector creates a connector. A nil logger uses slog.Default().
func NewSDKConnector(logger *slog.Logger) *SDKConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SDKConnector{
		logger:    logger,
		inspector: awserror.NewInspector(),
	}
}

// Connect loads the AWS configuration, optionally assumes a role and checks
// that credentials can actually be retrieved.
func (c *SDKConnector) Connect(ctx context.Context, opts SessionOptions) (*Session, error) {
	if partialEnvCredentials() {
		return nil, fmt.Errorf("Partial credentials, please check your credentials file: %w", apperrors.ErrPartialCredentials)
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		optFns = append(optFns, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.MaxAttempts > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(opts.MaxAttempts))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		if c.inspector.IsPartialCredentialsError(err) {
			return nil, fmt.Errorf("Partial credentials, please check your credentials file: %w", apperrors.ErrPartialCredentials)
		}
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Region == "" {
		return nil, fmt.Errorf("No region provided. Use --region or configure a default region: %w", apperrors.ErrNoRegion)
	}

	if opts.AssumeRole != "" {
		c.logger.Debug("assuming role", "role_arn", opts.AssumeRole)
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), opts.AssumeRole)
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}

	if err := c.checkCredentials(ctx, cfg); err != nil {
		return nil, err
	}

	client := awsrds.NewFromConfig(cfg, func(o *awsrds.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	c.logger.Debug("AWS session ready",
		"region", cfg.Region,
		"profile", opts.Profile,
		"endpoint", opts.Endpoint)

	return &Session{
		Client: NewSDKClient(client),
		Config: cfg,
	}, nil
}

func (c *SDKConnector) checkCredentials(ctx context.Context, cfg aws.Config) error {
	if cfg.Credentials == nil {
		return fmt.Errorf("Missing credentials. Configure a profile, environment variables or an instance role: %w", apperrors.ErrNoCredentials)
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	switch {
	case err == nil && creds.AccessKeyID != "" && creds.SecretAccessKey != "":
		return nil
	case err == nil:
		return fmt.Errorf("Partial credentials, please check your credentials file: %w", apperrors.ErrPartialCredentials)
	case ctx.Err() != nil:
		return ctx.Err()
	case c.inspector.IsPartialCredentialsError(err):
		return fmt.Errorf("Partial credentials, please check your credentials file: %w", apperrors.ErrPartialCredentials)
	case c.inspector.IsAccessDeniedError(err):
		return fmt.Errorf("failed to assume role (%v): %w", err, apperrors.ErrAccessDenied)
	case c.inspector.IsNetworkError(err) && !c.inspector.IsCredentialsError(err):
		return fmt.Errorf("network error while resolving credentials (%v): %w", err, apperrors.ErrNetworkFailure)
	default:
		c.logger.Debug("credential retrieval failed", "error", err)
		return fmt.Errorf("Missing credentials. Configure a profile, environment variables or an instance role: %w", apperrors.ErrNoCredentials)
	}
}

// partialEnvCredentials reports whether exactly one half of the environment
// key pair is set. The SDK silently skips such a pair and falls through to
// the next provider.
func partialEnvCredentials() bool {
	id := os.Getenv("AWS_ACCESS_KEY_ID") != ""
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY") != ""
	return id != secret
}
