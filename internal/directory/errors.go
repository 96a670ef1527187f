package directory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError represents an error response from the Directory Service.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"error_description"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("directory %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("directory %d: %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && (apiErr.Code != "" || apiErr.Message != "") {
		apiErr.StatusCode = status
		return &apiErr
	}
	return &APIError{
		StatusCode: status,
		Message:    strings.TrimSpace(string(body)),
	}
}
