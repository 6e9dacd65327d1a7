// Package shared holds the coded errors every layer can return. The HTTP
// layer maps their codes to statuses.
package shared

// Codes of the shared errors
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidState        = "INVALID_STATE"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// DomainError is a coded error. Two DomainErrors match under errors.Is when
// their codes are equal, whatever their messages.
type DomainError struct {
	Code    string
	Message string
	cause   error
}

// NewDomainError creates a DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithMessage copies the error with a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message}
}

// Wrap copies the error with err as its cause
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, cause: err}
}

var (
	ErrNotFound            = NewDomainError(CodeNotFound, "resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "invalid input")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "operation not allowed in the current state")
	ErrUpstreamUnavailable = NewDomainError(CodeUpstreamUnavailable, "upstream service is unavailable")
)
