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

package rds_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sirseerhq/rds-pgbadger/internal/errors"
	"github.com/sirseerhq/rds-pgbadger/internal/rds"
	"github.com/sirseerhq/rds-pgbadger/internal/rds/rdstest"
)

func TestSDKConnector_NoRegion(t *testing.T) {
	rdstest.StaticCredentials(t)

	_, err := rds.NewSDKConnector(nil).Connect(context.Background(), rds.SessionOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoRegion)
	assert.Contains(t, err.Error(), "No region provided")
}

func TestSDKConnector_RegionFromEnvironment(t *testing.T) {
	rdstest.StaticCredentials(t)
	t.Setenv("AWS_REGION", "us-east-2")

	sess, err := rds.NewSDKConnector(nil).Connect(context.Background(), rds.SessionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "us-east-2", sess.Config.Region)
}

func TestSDKConnector_PartialCredentials(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		secret string
	}{
		{"only key id", "AKIDTEST", ""},
		{"only secret", "", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdstest.StaticCredentials(t)
			t.Setenv("AWS_ACCESS_KEY_ID", tt.id)
			t.Setenv("AWS_SECRET_ACCESS_KEY", tt.secret)

			_, err := rds.NewSDKConnector(nil).Connect(context.Background(), rds.SessionOptions{Region: "eu-west-1"})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrPartialCredentials)
		})
	}
}

func TestSDKConnector_MissingCredentials(t *testing.T) {
	rdstest.StaticCredentials(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	_, err := rds.NewSDKConnector(nil).Connect(context.Background(), rds.SessionOptions{Region: "eu-west-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoCredentials)
}

func TestSDKConnector_UnknownProfile(t *testing.T) {
	rdstest.StaticCredentials(t)

	_, err := rds.NewSDKConnector(nil).Connect(context.Background(), rds.SessionOptions{
		Region:  "eu-west-1",
		Profile: "does-not-exist",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load AWS config")
}

func TestMockConnector(t *testing.T) {
	client := rds.NewMockClient()
	conn := &rds.MockConnector{Client: client}

	sess, err := conn.Connect(context.Background(), rds.SessionOptions{Region: "eu-west-1"})
	require.NoError(t, err)
	assert.Same(t, client, sess.Client)
	assert.Equal(t, 1, conn.Calls)
	assert.Equal(t, "eu-west-1", conn.LastOpts.Region)

	conn.Error = apperrors.ErrNoRegion
	_, err = conn.Connect(context.Background(), rds.SessionOptions{})
	assert.ErrorIs(t, err, apperrors.ErrNoRegion)
}
