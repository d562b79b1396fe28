// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Aggregate / orchestration
const (
	ErrCodeApplicationNotFound     ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeApplicationLocked       ErrorCode = "APPLICATION_LOCKED"
	ErrCodeDatabaseQueryFailed     ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeStatusUpdateFailed      ErrorCode = "STATUS_UPDATE_FAILED"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeTermsAgreementFailed    ErrorCode = "TERMS_AGREEMENT_FAILED"
	ErrCodeFormSubmissionFailed    ErrorCode = "FORM_SUBMISSION_FAILED"
	ErrCodeInputParsingFailed      ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
)

// Gateways
const (
	ErrCodeUnrecognizedAutomationResponse ErrorCode = "UNRECOGNIZED_AUTOMATION_RESPONSE"
	ErrCodeAutomationExecutionFailed      ErrorCode = "AUTOMATION_EXECUTION_FAILED"
	ErrCodeEmailSendingFailed             ErrorCode = "EMAIL_SENDING_FAILED"
	ErrCodeCRMRequestInvalid              ErrorCode = "CRM_REQUEST_INVALID"
	ErrCodeCRMLoginFailed                 ErrorCode = "CRM_LOGIN_FAILED"
	ErrCodeCRMRequestFailed               ErrorCode = "CRM_REQUEST_FAILED"
	ErrCodeFileTransferFailed             ErrorCode = "FILE_TRANSFER_FAILED"
	ErrCodeWorkflowEngineFailed           ErrorCode = "WORKFLOW_ENGINE_FAILED"
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
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
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

func NewApplicationNotFoundError(applicationID int64) *StandardError {
	return newError(ErrCodeApplicationNotFound, "Application not found", nil, false).
		WithMetadata("applicationId", applicationID)
}

// NewApplicationLockedError is retryable: nothing has run yet for this trigger.
func NewApplicationLockedError(applicationID int64) *StandardError {
	return newError(ErrCodeApplicationLocked, "Another fulfillment run is in flight for this application", nil, true).
		WithMetadata("applicationId", applicationID)
}

func NewDatabaseQueryFailedError(query string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, fmt.Sprintf("Database query %s failed", query), err, true)
}

func NewStatusUpdateFailedError(track string, err error) *StandardError {
	return newError(ErrCodeStatusUpdateFailed, fmt.Sprintf("Failed to update %s status", track), err, false)
}

func NewInvalidStatusTransitionError(track, to string) *StandardError {
	return newError(ErrCodeInvalidStatusTransition, fmt.Sprintf("Status transition to %s refused for %s track", to, track), nil, false)
}

func NewTermsAgreementFailedError(applicationID int64) *StandardError {
	return newError(ErrCodeTermsAgreementFailed, "Terms agreement could not be sent", nil, false).
		WithMetadata("applicationId", applicationID)
}

func NewFormSubmissionFailedError(applicationID int64) *StandardError {
	return newError(ErrCodeFormSubmissionFailed, "Application form could not be submitted", nil, false).
		WithMetadata("applicationId", applicationID)
}

func NewUnrecognizedAutomationResponseError(operation string, details string) *StandardError {
	e := newError(ErrCodeUnrecognizedAutomationResponse, fmt.Sprintf("Unrecognized response from %s", operation), nil, false)
	e.Details = details
	return e
}

func NewAutomationExecutionFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeAutomationExecutionFailed, fmt.Sprintf("Failed to execute %s", operation), err, false)
}

func NewEmailSendingFailedError(template string, err error) *StandardError {
	return newError(ErrCodeEmailSendingFailed, "EMAIL_SENDING_FAILED", err, false).
		WithMetadata("template", template)
}

func NewCRMRequestInvalidError(operation, reason string) *StandardError {
	e := newError(ErrCodeCRMRequestInvalid, fmt.Sprintf("Invalid request while %s", operation), nil, false)
	e.Details = reason
	return e
}

func NewCRMLoginFailedError(err error) *StandardError {
	return newError(ErrCodeCRMLoginFailed, "Failed to login to Salesforce", err, false)
}

func NewCRMRequestFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeCRMRequestFailed, fmt.Sprintf("Unknown error occurred while %s", operation), err, false)
}

func NewFileTransferFailedError(key string, err error) *StandardError {
	return newError(ErrCodeFileTransferFailed, "File transfer failed", err, false).
		WithMetadata("key", key)
}

func NewWorkflowEngineError(operation string, err error, retryable bool) *StandardError {
	return newError(ErrCodeWorkflowEngineFailed, fmt.Sprintf("Zeebe operation '%s' failed", operation), err, retryable)
}

func NewInputParsingFailedError(err error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Failed to parse job variables", err, false)
}

func NewValidationFailedError(details string) *StandardError {
	e := newError(ErrCodeValidationFailed, "Input validation failed", nil, false)
	e.Details = details
	return e
}

// ==========================
// 4. Inspection Helpers
// ==========================

// AsStandardError finds a StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// StandardErrors collects every StandardError in err's tree in depth-first order,
// descending into errors.Join and other multi-error wrappers.
func StandardErrors(err error) []*StandardError {
	var out []*StandardError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if stdErr, ok := e.(*StandardError); ok {
			out = append(out, stdErr)
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// HasCode reports whether any StandardError in err's tree carries code.
func HasCode(err error, code ErrorCode) bool {
	for _, stdErr := range StandardErrors(err) {
		if stdErr.Code == code {
			return true
		}
	}
	return false
}

// primary picks the error that decides how a failure is classified: the first
// non-retryable StandardError, else the first one found.
func primary(err error) (*StandardError, bool) {
	all := StandardErrors(err)
	if len(all) == 0 {
		return nil, false
	}
	for _, stdErr := range all {
		if !stdErr.Retryable || !IsRetryableErrorCode(stdErr.Code) {
			return stdErr, true
		}
	}
	return all[0], true
}

// CodeOf returns the classifying code of err, or INTERNAL_ERROR. A joined error is
// retryable only when every member is, so a terminal member wins.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := primary(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// Normalize returns the classifying StandardError of err, wrapping anything else
// as non-retryable INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if stdErr, ok := primary(err); ok {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// ==========================
// 5. BPMN Mapping
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeApplicationNotFound:            "APPLICATION_NOT_FOUND",
	ErrCodeApplicationLocked:              "APPLICATION_LOCKED",
	ErrCodeDatabaseQueryFailed:            "DATABASE_QUERY_FAILED",
	ErrCodeStatusUpdateFailed:             "FULFILLMENT_FAILED",
	ErrCodeInvalidStatusTransition:        "FULFILLMENT_FAILED",
	ErrCodeUnrecognizedAutomationResponse: "AUTOMATION_FAILED",
	ErrCodeAutomationExecutionFailed:      "AUTOMATION_FAILED",
	ErrCodeEmailSendingFailed:             "NOTIFICATION_FAILED",
	ErrCodeCRMRequestInvalid:              "CRM_FAILED",
	ErrCodeCRMLoginFailed:                 "CRM_FAILED",
	ErrCodeCRMRequestFailed:               "CRM_FAILED",
	ErrCodeFileTransferFailed:             "FILE_TRANSFER_FAILED",
	ErrCodeWorkflowEngineFailed:           "WORKFLOW_ENGINE_FAILED",
	ErrCodeInputParsingFailed:             "INVALID_INPUT",
	ErrCodeValidationFailed:               "INVALID_INPUT",
}

// GetRetryCount returns how many times the engine may redeliver a job failing with code.
// Only failures raised before any side effect are redelivered.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeApplicationLocked:
		return 5
	case ErrCodeDatabaseQueryFailed:
		return 3
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "APPLICATION"), strings.Contains(codeStr, "STATUS"), strings.HasPrefix(codeStr, "WORKFLOW"):
		return "ORCHESTRATION"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "AUTOMATION"), strings.Contains(codeStr, "AGREEMENT"), strings.Contains(codeStr, "FORM"):
		return "AUTOMATION"
	case strings.Contains(codeStr, "EMAIL"):
		return "NOTIFICATION"
	case strings.HasPrefix(codeStr, "CRM"):
		return "CRM"
	case strings.Contains(codeStr, "FILE"):
		return "STORAGE"
	case strings.Contains(codeStr, "INPUT"), strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
