package errors

import "fmt"

// Error codes
const (
	CodeAppError     = "APP_ERROR"
	CodeFetch        = "FETCH_ERROR"
	CodeAIRequest    = "AI_REQUEST_ERROR"
	CodePrecondition = "PRECONDITION_ERROR"
	CodeValidation   = "VALIDATION_ERROR"
	CodeCache        = "CACHE_ERROR"
	CodeService      = "SERVICE_ERROR"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// FetchError means the upstream video source was unreachable or reported failure.
type FetchError struct {
	*AppError
}

func NewFetchError(message string, statusCode int, context map[string]any) *FetchError {
	return &FetchError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeFetch,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

func (e *FetchError) WithCause(cause error) *FetchError {
	e.Cause = cause
	return e
}

// AIRequestError is raised by summary providers. The pipeline never lets it escape.
type AIRequestError struct {
	*AppError
	Provider string
}

func NewAIRequestError(message, provider string, statusCode int, cause error) *AIRequestError {
	return &AIRequestError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeAIRequest,
			StatusCode: statusCode,
			Context: map[string]any{
				"provider": provider,
			},
			Cause: cause,
		},
		Provider: provider,
	}
}

type PreconditionError struct {
	*AppError
	Argument string
}

func NewPreconditionError(message, argument string) *PreconditionError {
	return &PreconditionError{
		AppError: &AppError{
			Message:    message,
			Code:       CodePrecondition,
			StatusCode: 400,
			Context: map[string]any{
				"argument": argument,
			},
		},
		Argument: argument,
	}
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*AppError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}
