// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"errors"
	"fmt"
)

// APIError is an error response from the platform.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
	// Code is the platform's machine-readable error code, if any.
	Code string `json:"code"`
	// Message is the human-readable error description.
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform: %d: %s", e.StatusCode, e.Message)
}

// IsAPIError checks whether err is an *APIError with the given HTTP
// status.
func IsAPIError(err error, statusCode int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == statusCode
	}
	return false
}
