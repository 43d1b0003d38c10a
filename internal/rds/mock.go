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
	"time"

	apperrors "github.com/sirseerhq/rds-pgbadger/internal/errors"
	"github.com/sirseerhq/rds-pgbadger/internal/portion"
)

// PortionCall records one DownloadPortion call made against the mock.
type PortionCall struct {
	File   string
	Marker string
	Lines  int
}

// MockClient is a mock implementation of the Client interface for testing.
type MockClient struct {
	// Pages returned by DescribeLogFiles, in order. The marker of page i is
	// the string form of i+1, and the last page has no marker.
	Pages [][]LogFile

	// Portions maps a file name to the responses DownloadPortion returns, in
	// order. Once exhausted the file reports an empty, final portion.
	Portions map[string][]portion.Portion

	// Error to return
	Error error

	// Behavior flags
	ShouldFailAuth     bool
	ShouldFailNetwork  bool
	ShouldFailNotFound bool

	// Track calls for verification
	ListCalls    int
	ListOpts     []ListOptions
	PortionCalls []PortionCall
	LastInstance string

	served map[string]int
}

// NewMockClient creates a new mock client with default test data
func NewMockClient() *MockClient {
	return &MockClient{
		Pages:    [][]LogFile{generateTestLogFiles()},
		Portions: map[string][]portion.Portion{},
		served:   map[string]int{},
	}
}

// DescribeLogFiles implements the Client interface
func (m *MockClient) DescribeLogFiles(ctx context.Context, instance string, opts ListOptions) (*LogFilePage, error) {
	m.ListCalls++
	m.ListOpts = append(m.ListOpts, opts)
	m.LastInstance = instance

	if err := m.fail(ctx, instance); err != nil {
		return nil, err
	}

	idx := 0
	if opts.Marker != "" {
		if _, err := fmt.Sscanf(opts.Marker, "%d", &idx); err != nil {
			return nil, fmt.Errorf("invalid marker %q", opts.Marker)
		}
	}
	if idx >= len(m.Pages) {
		return &LogFilePage{}, nil
	}

	page := &LogFilePage{Files: m.Pages[idx]}
	if idx+1 < len(m.Pages) {
		page.Marker = fmt.Sprintf("%d", idx+1)
	}
	return page, nil
}

// DownloadPortion implements the Client interface
func (m *MockClient) DownloadPortion(ctx context.Context, instance, file string, opts PortionOptions) (*portion.Portion, error) {
	m.PortionCalls = append(m.PortionCalls, PortionCall{File: file, Marker: opts.Marker, Lines: opts.Lines})
	m.LastInstance = instance

	if err := m.fail(ctx, instance); err != nil {
		return nil, err
	}

	if m.served == nil {
		m.served = map[string]int{}
	}
	responses := m.Portions[file]
	n := m.served[file]
	if n >= len(responses) {
		return &portion.Portion{Marker: opts.Marker}, nil
	}
	m.served[file] = n + 1

	p := responses[n]
	return &p, nil
}

// Reset rewinds the scripted portions and clears recorded calls so the same
// mock can serve a second run.
func (m *MockClient) Reset() {
	m.served = map[string]int{}
	m.ListCalls = 0
	m.ListOpts = nil
	m.PortionCalls = nil
}

func (m *MockClient) fail(ctx context.Context, instance string) error {
	// Check for context cancellation
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if m.ShouldFailAuth {
		return fmt.Errorf("access denied: %w", apperrors.ErrAccessDenied)
	}

	if m.ShouldFailNetwork {
		return fmt.Errorf("network timeout: %w", apperrors.ErrNetworkFailure)
	}

	if m.ShouldFailNotFound || instance == "nonexistent" {
		return fmt.Errorf("DB instance '%s' not found: %w", instance, apperrors.ErrInstanceNotFound)
	}

	return m.Error
}

// generateTestLogFiles creates a sample listing for testing
func generateTestLogFiles() []LogFile {
	written := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	return []LogFile{
		{Name: "error/postgresql.log.2024-01-01-00", Size: 2048, LastWritten: written},
		{Name: "error/postgresql.log.2024-01-01-01", Size: 4096, LastWritten: written},
		{Name: "error/postgresql.log.2024-01-02-00", Size: 1024, LastWritten: written.Add(24 * time.Hour)},
	}
}

// MockClientOption allows configuring the mock client
type MockClientOption func(*MockClient)

// WithPages sets the listing pages to return
func WithPages(pages ...[]LogFile) MockClientOption {
	return func(m *MockClient) {
		m.Pages = pages
	}
}

// WithPortions scripts the portions returned for one file
func WithPortions(file string, portions ...portion.Portion) MockClientOption {
	return func(m *MockClient) {
		m.Portions[file] = portions
	}
}

// WithError makes the client return a specific error
func WithError(err error) MockClientOption {
	return func(m *MockClient) {
		m.Error = err
	}
}

// WithAuthFailure makes the client simulate an access denied response
func WithAuthFailure() MockClientOption {
	return func(m *MockClient) {
		m.ShouldFailAuth = true
	}
}

// WithNetworkFailure makes the client simulate an unreachable endpoint
func WithNetworkFailure() MockClientOption {
	return func(m *MockClient) {
		m.ShouldFailNetwork = true
	}
}

// NewMockClientWithOptions creates a mock client with options
func NewMockClientWithOptions(opts ...MockClientOption) *MockClient {
	mock := NewMockClient()
	for _, opt := range opts {
		opt(mock)
	}
	return mock
}

// MockConnector hands out a fixed session, or a fixed error.
type MockConnector struct {
	Client Client
	Error  error

	Calls    int
	LastOpts SessionOptions
}

// Connect implements the Connector interface
func (c *MockConnector) Connect(ctx context.Context, opts SessionOptions) (*Session, error) {
	c.Calls++
	c.LastOpts = opts
	if c.Error != nil {
		return nil, c.Error
	}
	return &Session{Client: c.Client}, nil
}
