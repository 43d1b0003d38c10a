// Package awserror provides error inspection capabilities for AWS SDK errors.
// It centralizes the logic for identifying configuration, authorization,
// not-found and connectivity failures returned by the RDS API, so callers
// never match on error strings themselves.
package awserror
