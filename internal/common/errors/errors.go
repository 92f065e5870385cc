// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
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
	ErrCodeSubjectNotFound     ErrorCode = "SUBJECT_NOT_FOUND"
	ErrCodeRegistryLoadFailed  ErrorCode = "REGISTRY_LOAD_FAILED"
	ErrCodeRecognitionFailed   ErrorCode = "RECOGNITION_FAILED"
	ErrCodeInvalidQueryIntent  ErrorCode = "INVALID_QUERY_INTENT"
	ErrCodeCompilationFailed   ErrorCode = "QUERY_COMPILATION_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSemanticSearchFailed          ErrorCode = "SEMANTIC_SEARCH_FAILED"
	ErrCodeSemanticSearchTimeout         ErrorCode = "SEMANTIC_SEARCH_TIMEOUT"

	ErrCodeInferenceFailed ErrorCode = "INFERENCE_FAILED"
	ErrCodeInferenceTimeout ErrorCode = "INFERENCE_TIMEOUT"

	ErrCodeConversationStoreFailed ErrorCode = "CONVERSATION_STORE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
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

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewSubjectNotFoundError creates a non-retryable error for a metric
// subject the catalog does not know.
func NewSubjectNotFoundError(subject string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubjectNotFound,
		Message:   "Metric subject not found in catalog",
		Details:   fmt.Sprintf("subject: %s", subject),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRegistryLoadFailedError creates a non-retryable catalog load error.
func NewRegistryLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryLoadFailed,
		Message:   "Subject catalog failed to load",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecognitionFailedError creates a retryable recognition error.
func NewRecognitionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecognitionFailed,
		Message:   "Query intent recognition failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidQueryIntentError creates a non-retryable intent validation error.
func NewInvalidQueryIntentError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidQueryIntent,
		Message:   "Query intent is missing required fields",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompilationFailedError creates a non-retryable SQL compilation error.
func NewCompilationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompilationFailed,
		Message:   "Canonical query could not be compiled to SQL",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(subject string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Metric query execution error",
		Details:   fmt.Sprintf("subject: %s, error: %s", subject, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(subject string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Metric query timeout",
		Details:   fmt.Sprintf("subject: %s", subject),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeElasticsearchConnectionFailed,
		Message:   "Elasticsearch connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSemanticSearchFailedError creates a retryable semantic search error.
func NewSemanticSearchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSemanticSearchFailed,
		Message:   "Semantic subject search error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSemanticSearchTimeoutError creates a retryable semantic search timeout error.
func NewSemanticSearchTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSemanticSearchTimeout,
		Message:   "Semantic subject search timeout",
		Details:   "search call exceeded its tier timeout",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInferenceFailedError creates a retryable generative inference error.
func NewInferenceFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInferenceFailed,
		Message:   "Generative intent inference error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInferenceTimeoutError creates a retryable generative inference timeout error.
func NewInferenceTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeInferenceTimeout,
		Message:   "Generative intent inference timeout",
		Details:   "inference call exceeded its tier timeout",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversationStoreFailedError creates a retryable conversation store error.
func NewConversationStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationStoreFailed,
		Message:   "Conversation context store error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (same as internal).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeSubjectNotFound:               "SUBJECT_NOT_FOUND",
	ErrCodeRegistryLoadFailed:            "REGISTRY_LOAD_FAILED",
	ErrCodeRecognitionFailed:             "RECOGNITION_FAILED",
	ErrCodeInvalidQueryIntent:            "INVALID_QUERY_INTENT",
	ErrCodeCompilationFailed:             "QUERY_COMPILATION_FAILED",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:                  "QUERY_TIMEOUT",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSemanticSearchFailed:          "SEMANTIC_SEARCH_FAILED",
	ErrCodeSemanticSearchTimeout:         "SEMANTIC_SEARCH_TIMEOUT",
	ErrCodeInferenceFailed:               "INFERENCE_FAILED",
	ErrCodeInferenceTimeout:              "INFERENCE_TIMEOUT",
	ErrCodeConversationStoreFailed:       "CONVERSATION_STORE_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSemanticSearchFailed,
		ErrCodeInferenceFailed,
		ErrCodeConversationStoreFailed,
		ErrCodeRecognitionFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeSemanticSearchTimeout,
		ErrCodeInferenceTimeout:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
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

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SUBJECT") || strings.Contains(codeStr, "REGISTRY"):
		return "CATALOG"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "INFERENCE") || strings.Contains(codeStr, "RECOGNITION"):
		return "AI"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CONVERSATION"):
		return "CONVERSATION"
	default:
		return "OTHER"
	}
}
