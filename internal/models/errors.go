package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTransport      = "TRANSPORT_ERROR"
	ErrCodeHTTP           = "HTTP_ERROR"
	ErrCodeBlocked        = "BLOCKED"
	ErrCodeExtraction     = "EXTRACTION_FAILED"
	ErrCodeSchema         = "SCHEMA_MISMATCH"
	ErrCodeResourceExhaus = "RESOURCE_EXHAUSTED"
	ErrCodeCancelled      = "CANCELLED"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeInternal       = "INTERNAL_ERROR"

	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// ErrorDetail is the structured error shape returned across the API.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AppError is the internal error type carrying a closed error code, an
// optional HTTP status, and an optional BlockKind when the code is
// ErrCodeBlocked. It implements error and supports wrapping via Unwrap.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Block      BlockKind // set only when Code == ErrCodeBlocked
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *AppError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

func NewTransportError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeTransport, Message: message, Err: err}
}

func NewHTTPError(status int, message string) *AppError {
	return &AppError{Code: ErrCodeHTTP, Message: message, HTTPStatus: status}
}

func NewBlockedError(kind BlockKind, message string) *AppError {
	return &AppError{Code: ErrCodeBlocked, Message: message, Block: kind}
}

func NewExtractionError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeExtraction, Message: message, Err: err}
}

func NewSchemaError(message string) *AppError {
	return &AppError{Code: ErrCodeSchema, Message: message}
}

func NewResourceExhausted(message string) *AppError {
	return &AppError{Code: ErrCodeResourceExhaus, Message: message}
}

func NewCancellationError(err error) *AppError {
	return &AppError{Code: ErrCodeCancelled, Message: "request cancelled", Err: err}
}

func NewLLMError(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// LLMUsage mirrors an OpenAI-compatible chat-completion endpoint's token
// accounting, surfaced to deep_research callers for cost observability.
type LLMUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
