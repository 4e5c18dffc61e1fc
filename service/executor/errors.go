package executor

import "fmt"

// BackendError reports a failed model call or an error payload returned by
// the backend.
type BackendError struct {
	Model      string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model %v failed with status %d: %v", e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model %v failed: %v", e.Model, e.Message)
}

// NewBackendError creates a BackendError.
func NewBackendError(modelName string, statusCode int, message string) *BackendError {
	return &BackendError{Model: modelName, StatusCode: statusCode, Message: message}
}
