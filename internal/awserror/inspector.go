package awserror

import (
	"errors"
	"net"
	"strings"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Inspector provides methods for analyzing AWS SDK errors.
type Inspector interface {
	// IsNoRegionError returns true if the request failed because no region was resolved.
	IsNoRegionError(err error) bool

	// IsCredentialsError returns true if no usable credentials could be retrieved.
	IsCredentialsError(err error) bool

	// IsPartialCredentialsError returns true if only part of a key pair was found.
	IsPartialCredentialsError(err error) bool

	// IsAccessDeniedError returns true if the credentials were rejected or lack permission.
	IsAccessDeniedError(err error) bool

	// IsNotFoundError returns true if the instance or log file does not exist.
	IsNotFoundError(err error) bool

	// IsNetworkError returns true if the endpoint could not be reached.
	IsNetworkError(err error) bool
}

var notFoundCodes = map[string]bool{
	"DBInstanceNotFound":      true,
	"DBInstanceNotFoundFault": true,
	"DBLogFileNotFoundFault":  true,
}

var accessDeniedCodes = map[string]bool{
	"AccessDenied":                true,
	"AccessDeniedException":       true,
	"UnauthorizedOperation":       true,
	"InvalidClientTokenId":        true,
	"SignatureDoesNotMatch":       true,
	"ExpiredToken":                true,
	"ExpiredTokenException":       true,
	"UnrecognizedClientException": true,
}

// AWSErrorInspector implements the Inspector interface for AWS SDK v2 errors.
type AWSErrorInspector struct{}

// NewInspector creates a new AWSErrorInspector.
func NewInspector() Inspector {
	return &AWSErrorInspector{}
}

// IsNoRegionError checks if the error stems from a missing or unusable region.
func (i *AWSErrorInspector) IsNoRegionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "region is required") ||
		strings.Contains(errStr, "missing region") ||
		strings.Contains(errStr, "invalid region")
}

// IsCredentialsError checks if the credential provider chain failed.
func (i *AWSErrorInspector) IsCredentialsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "failed to retrieve credentials") ||
		strings.Contains(errStr, "no valid credential") ||
		strings.Contains(errStr, "static credentials are empty") ||
		strings.Contains(errStr, "no ec2 imds role found") ||
		strings.Contains(errStr, "anonymous credentials")
}

// IsPartialCredentialsError checks for a profile or environment that carries
// only one half of an access key pair.
func (i *AWSErrorInspector) IsPartialCredentialsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "partial credentials") ||
		strings.Contains(errStr, "missing secret access key") ||
		strings.Contains(errStr, "missing access key id")
}

// IsAccessDeniedError checks the API error code for authorization failures.
func (i *AWSErrorInspector) IsAccessDeniedError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return accessDeniedCodes[apiErr.ErrorCode()]
	}
	return false
}

// IsNotFoundError checks the API error code for missing instances or log files.
func (i *AWSErrorInspector) IsNotFoundError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return notFoundCodes[apiErr.ErrorCode()]
	}
	return false
}

// IsNetworkError checks if the request never reached the service.
func (i *AWSErrorInspector) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "network is unreachable")
}
