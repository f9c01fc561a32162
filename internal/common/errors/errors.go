// Package errors provides the error taxonomy shared by the pipeline and its job worker.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	ErrCodeCollectionFailed  ErrorCode = "COLLECTION_FAILED"
	ErrCodeCollectionTimeout ErrorCode = "COLLECTION_TIMEOUT"
	ErrCodeRobotsDisallowed  ErrorCode = "ROBOTS_DISALLOWED"

	ErrCodeExtractionFailed      ErrorCode = "EXTRACTION_FAILED"
	ErrCodeExtractionTimeout     ErrorCode = "EXTRACTION_TIMEOUT"
	ErrCodeExtractionParseFailed ErrorCode = "EXTRACTION_PARSE_FAILED"

	ErrCodeReferenceFetchFailed     ErrorCode = "REFERENCE_FETCH_FAILED"
	ErrCodePersistenceFailed        ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDealNotFound             ErrorCode = "DEAL_NOT_FOUND"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeArchiveFailed          ErrorCode = "ARCHIVE_FAILED"

	ErrCodeWorkflowUnavailable ErrorCode = "WORKFLOW_ENGINE_UNAVAILABLE"
	ErrCodeWorkflowTimeout     ErrorCode = "WORKFLOW_ENGINE_TIMEOUT"

	ErrCodeRunInProgress ErrorCode = "RUN_IN_PROGRESS"
	ErrCodeRunFailed     ErrorCode = "RUN_FAILED"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewConfigInvalidError(err error) *StandardError {
	return newError(ErrCodeConfigInvalid, "Configuration is missing or invalid", err, false)
}

func NewCollectionFailedError(source string, err error) *StandardError {
	return newError(ErrCodeCollectionFailed, fmt.Sprintf("Failed to collect source '%s'", source), err, true).
		WithMetadata("source", source)
}

func NewCollectionTimeoutError(source string, err error) *StandardError {
	return newError(ErrCodeCollectionTimeout, fmt.Sprintf("Timed out collecting source '%s'", source), err, true).
		WithMetadata("source", source)
}

func NewRobotsDisallowedError(url string) *StandardError {
	return newError(ErrCodeRobotsDisallowed, "Fetching is disallowed by robots.txt", fmt.Errorf("url: %s", url), false)
}

func NewExtractionFailedError(provider string, err error) *StandardError {
	return newError(ErrCodeExtractionFailed, fmt.Sprintf("Extractor '%s' request failed", provider), err, true)
}

func NewExtractionTimeoutError(provider string, err error) *StandardError {
	return newError(ErrCodeExtractionTimeout, fmt.Sprintf("Extractor '%s' timed out", provider), err, true)
}

func NewExtractionParseFailedError(err error) *StandardError {
	return newError(ErrCodeExtractionParseFailed, "Extractor response is not a JSON array of deals", err, false)
}

func NewReferenceFetchFailedError(err error) *StandardError {
	return newError(ErrCodeReferenceFetchFailed, "Failed to fetch recent deals", err, true)
}

func NewPersistenceFailedError(err error) *StandardError {
	return newError(ErrCodePersistenceFailed, "Failed to write deals", err, true)
}

func NewDealNotFoundError(id string) *StandardError {
	return newError(ErrCodeDealNotFound, "Deal not found", fmt.Errorf("id: %s", id), false).
		WithMetadata("id", id)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection failed", err, true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, fmt.Sprintf("Failed to send %s notification", channel), err, true).
		WithMetadata("channel", channel)
}

func NewArchiveFailedError(err error) *StandardError {
	return newError(ErrCodeArchiveFailed, "Failed to archive run summary", err, true)
}

func NewWorkflowUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeWorkflowUnavailable, "Workflow engine unavailable", err, true).
		WithMetadata("operation", operation)
}

func NewWorkflowTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeWorkflowTimeout, "Workflow engine request timed out", err, true).
		WithMetadata("operation", operation)
}

func NewRunInProgressError() *StandardError {
	return newError(ErrCodeRunInProgress, "A pipeline run is already in progress", nil, false)
}

func NewRunFailedError(err error) *StandardError {
	return newError(ErrCodeRunFailed, "Pipeline run failed", err, true)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRunFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeReferenceFetchFailed,
		ErrCodePersistenceFailed:
		return 1
	case ErrCodeCollectionFailed,
		ErrCodeCollectionTimeout,
		ErrCodeExtractionFailed,
		ErrCodeExtractionTimeout,
		ErrCodeNotificationSendFailed,
		ErrCodeArchiveFailed:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError finds a StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain contains a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Retryable
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "COLLECTION") || strings.HasPrefix(codeStr, "ROBOTS"):
		return "COLLECTION"
	case strings.HasPrefix(codeStr, "EXTRACTION"):
		return "EXTRACTION"
	case strings.Contains(codeStr, "DATABASE") || strings.HasPrefix(codeStr, "REFERENCE") || strings.HasPrefix(codeStr, "PERSISTENCE"):
		return "STORE"
	case strings.HasPrefix(codeStr, "NOTIFICATION") || strings.HasPrefix(codeStr, "ARCHIVE"):
		return "DELIVERY"
	case strings.HasPrefix(codeStr, "CONFIG"):
		return "CONFIG"
	case strings.HasPrefix(codeStr, "RUN") || strings.HasPrefix(codeStr, "WORKFLOW"):
		return "RUN"
	default:
		return "OTHER"
	}
}
