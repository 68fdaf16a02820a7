// Package domain classifies gateway calls and decides whether a submission retries.
package domain

import (
	"errors"
	"net/http"

	auditdomain "github.com/smallbiznis/taxgate/internal/audit/domain"
	"github.com/smallbiznis/taxgate/internal/gateway"
)

const authErrorCode = "0401"

// Outcome is the closed set of results of one gateway call.
type Outcome interface {
	Kind() auditdomain.Outcome
	sealed()
}

// Success carries the accepted gateway response.
type Success struct {
	HTTPStatus int
	Response   gateway.GatewayResponse
}

// ValidationError is any HTTP response the gateway did not accept. Response is nil when the
// body could not be parsed.
type ValidationError struct {
	HTTPStatus int
	Code       string
	Message    string
	Response   *gateway.GatewayResponse
}

// AuthError is a rejection of the seller's credentials.
type AuthError struct {
	HTTPStatus int
	Code       string
	Message    string
	Response   *gateway.GatewayResponse
}

// Timeout means the gateway may or may not have received the document.
type Timeout struct {
	Err error
}

// NetworkError means the request never left.
type NetworkError struct {
	Err error
}

// Unknown is a transport failure that cannot be placed in any other variant.
type Unknown struct {
	Err error
}

func (Success) Kind() auditdomain.Outcome         { return auditdomain.OutcomeSuccess }
func (ValidationError) Kind() auditdomain.Outcome { return auditdomain.OutcomeValidationError }
func (AuthError) Kind() auditdomain.Outcome       { return auditdomain.OutcomeAuthError }
func (Timeout) Kind() auditdomain.Outcome         { return auditdomain.OutcomeTimeout }
func (NetworkError) Kind() auditdomain.Outcome    { return auditdomain.OutcomeNetworkError }
func (Unknown) Kind() auditdomain.Outcome         { return auditdomain.OutcomeUnknown }

func (Success) sealed()         {}
func (ValidationError) sealed() {}
func (AuthError) sealed()       {}
func (Timeout) sealed()         {}
func (NetworkError) sealed()    {}
func (Unknown) sealed()         {}

// Classify maps the result of a Client call onto an Outcome.
func Classify(resp *gateway.Response, err error) Outcome {
	if err != nil {
		var timeoutErr *gateway.TimeoutError
		if errors.As(err, &timeoutErr) {
			return Timeout{Err: err}
		}
		var transportErr *gateway.TransportError
		if errors.As(err, &transportErr) && transportErr.Dial {
			return NetworkError{Err: err}
		}
		return Unknown{Err: err}
	}
	if resp == nil {
		return Unknown{Err: errors.New("gateway returned no response")}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return AuthError{HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return ValidationError{HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	parsed, perr := gateway.ParseResponse(resp.Body)
	if perr != nil {
		return ValidationError{HTTPStatus: resp.StatusCode, Message: perr.Error()}
	}
	if parsed.Accepted() {
		return Success{HTTPStatus: resp.StatusCode, Response: *parsed}
	}

	code := parsed.ErrorCode()
	message := parsed.ValidationResponse.Error
	if code == authErrorCode {
		return AuthError{HTTPStatus: resp.StatusCode, Code: code, Message: message, Response: parsed}
	}
	return ValidationError{HTTPStatus: resp.StatusCode, Code: code, Message: message, Response: parsed}
}

// ErrorCode returns the gateway error code carried by o, if any.
func ErrorCode(o Outcome) string {
	switch o := o.(type) {
	case ValidationError:
		return o.Code
	case AuthError:
		return o.Code
	default:
		return ""
	}
}

// GatewayResponse returns the parsed response carried by o, if any.
func GatewayResponse(o Outcome) *gateway.GatewayResponse {
	switch o := o.(type) {
	case Success:
		return &o.Response
	case ValidationError:
		return o.Response
	case AuthError:
		return o.Response
	default:
		return nil
	}
}
