package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/taxgate/internal/gateway"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	referencedomain "github.com/smallbiznis/taxgate/internal/reference/domain"
	tenantdomain "github.com/smallbiznis/taxgate/internal/tenant/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fieldValidationErrors(fieldErrs),
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var timeoutErr *gateway.TimeoutError
	var transportErr *gateway.TransportError

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, tenantdomain.ErrInactive):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, referencedomain.ErrRefExists),
		errors.Is(err, referencedomain.ErrRefBlocked):
		return http.StatusConflict, errorPayload{
			Type:    conflictType(err),
			Message: err.Error(),
		}
	case errors.Is(err, invoicedomain.ErrSubmissionInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "submission_in_progress",
			Message: "a submission for this invoice is already in progress",
		}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, invoicedomain.ErrNotDraft):
		return http.StatusBadRequest, errorPayload{
			Type:    "invoice_not_draft",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, errorPayload{
			Type:    "gateway_timeout",
			Message: "tax gateway did not respond in time",
		}
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_unreachable",
			Message: "tax gateway is unreachable",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the error type and code recorded on request logs.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError && payload.Type == "internal_error" {
		return "internal", code
	}
	return payload.Type, code
}

func conflictType(err error) string {
	if errors.Is(err, referencedomain.ErrRefBlocked) {
		return "invoice_ref_no_blocked"
	}
	return "invoice_ref_no_exists"
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func fieldValidationErrors(errs validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Code:    fe.Tag(),
			Message: "invalid value",
		})
	}
	return out
}

// fieldPath drops the leading struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, referencedomain.ErrInvalidFormat),
		errors.Is(err, invoicedomain.ErrReferencedInvoiceNotFound),
		errors.Is(err, invoicedomain.ErrReferencedInvoiceRequired),
		errors.Is(err, invoicedomain.ErrInvalidReferencedInvoice),
		errors.Is(err, invoicedomain.ErrInvalidTenant),
		errors.Is(err, invoicedomain.ErrInvalidDocumentType),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceDate),
		errors.Is(err, invoicedomain.ErrInvalidItems),
		errors.Is(err, invoicedomain.ErrInvalidRegistrationType),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceRefNo),
		errors.Is(err, invoicedomain.ErrGatewayValidationDisabled):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, tenantdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, sentinel := range []error{
		ErrInvalidRequest,
		referencedomain.ErrInvalidFormat,
		invoicedomain.ErrReferencedInvoiceNotFound,
		invoicedomain.ErrReferencedInvoiceRequired,
		invoicedomain.ErrInvalidReferencedInvoice,
		invoicedomain.ErrInvalidTenant,
		invoicedomain.ErrInvalidDocumentType,
		invoicedomain.ErrInvalidStatus,
		invoicedomain.ErrInvalidInvoiceDate,
		invoicedomain.ErrInvalidItems,
		invoicedomain.ErrInvalidRegistrationType,
		invoicedomain.ErrInvalidInvoiceRefNo,
		invoicedomain.ErrGatewayValidationDisabled,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "referenced_invoice_not_found", "invalid_referenced_invoice":
		return "referenced_invoice_ref_no"
	case "gateway_validation_not_configured":
		return "gateway"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "referenced_invoice_not_found":
		return "referenced invoice not found or not submitted"
	case "invalid_referenced_invoice_ref_no":
		return "debit and credit notes must reference a submitted sale invoice"
	case "gateway_validation_not_configured":
		return "gateway validation endpoint is not configured"
	case "invalid_invoice_ref_no":
		return "invoice_ref_no must be 1-50 characters of letters, digits, '-', '_' or '/'"
	default:
		return "invalid value"
	}
}
