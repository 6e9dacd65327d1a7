package dto

import (
	"errors"
	"net/http"

	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/domain/shared"
)

// API error codes
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"
	ErrCodeRequestTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeUnsupportedMedia    = "ERR_UNSUPPORTED_MEDIA"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodePricingFailed       = "ERR_PRICING_FAILED"
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	ErrCodeUnauthorized        = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired        = "ERR_TOKEN_EXPIRED"
	ErrCodeForbidden           = "ERR_FORBIDDEN"
)

var statusByCode = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeUnsupportedMedia:    http.StatusUnsupportedMediaType,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodePricingFailed:       http.StatusUnprocessableEntity,
	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeTokenExpired:        http.StatusUnauthorized,
	ErrCodeForbidden:           http.StatusForbidden,
}

var apiCodeByDomainCode = map[string]string{
	shared.CodeNotFound:            ErrCodeNotFound,
	shared.CodeAlreadyExists:       ErrCodeAlreadyExists,
	shared.CodeInvalidInput:        ErrCodeInvalidInput,
	shared.CodeInvalidState:        ErrCodeInvalidState,
	shared.CodeUpstreamUnavailable: ErrCodeUpstreamUnavailable,
}

// pricingErrors maps the sentinel errors of the pricing domain. Order matters
// only for errors that wrap more than one sentinel.
var pricingErrors = []struct {
	target error
	code   string
}{
	{pricing.ErrCommissionNotFound, ErrCodeNotFound},
	{pricing.ErrCategoryNotFound, ErrCodeNotFound},
	{pricing.ErrProductNotFound, ErrCodeNotFound},
	{pricing.ErrEmptySpreadsheet, ErrCodeInvalidInput},
	{pricing.ErrInvalidFormulaInput, ErrCodePricingFailed},
	{pricing.ErrIterationCapExceeded, ErrCodePricingFailed},
}

// HTTPStatus returns the status of an API error code, 500 for unknown codes
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode turns a shared domain code into its API code. Other
// codes pass through.
func NormalizeErrorCode(code string) string {
	if api, ok := apiCodeByDomainCode[code]; ok {
		return api
	}
	return code
}

// ClassifyError finds the API code and client-facing message of err.
// ok is false for errors that should surface as internal errors.
func ClassifyError(err error) (code, message string, ok bool) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return NormalizeErrorCode(domainErr.Code), domainErr.Message, true
	}
	for _, pe := range pricingErrors {
		if errors.Is(err, pe.target) {
			return pe.code, err.Error(), true
		}
	}
	return ErrCodeInternal, "An unexpected error occurred", false
}
