package domain

import (
	"context"
	"errors"
	"net/http"
	"testing"

	auditdomain "github.com/smallbiznis/taxgate/internal/audit/domain"
	"github.com/smallbiznis/taxgate/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int, body string) *gateway.Response {
	return &gateway.Response{StatusCode: status, Body: []byte(body)}
}

func TestClassify(t *testing.T) {
	accepted := `{"invoiceNumber":"N1","validationResponse":{"statusCode":"00","status":"Valid","invoiceStatuses":[{"itemSNo":"1","statusCode":"00"}]}}`
	rejected := `{"validationResponse":{"statusCode":"01","status":"Invalid","errorCode":"0052","error":"bad hs code"}}`
	authRejected := `{"validationResponse":{"statusCode":"01","status":"Invalid","errorCode":"0401","error":"unauthorized"}}`

	cases := []struct {
		name string
		resp *gateway.Response
		err  error
		kind auditdomain.Outcome
		code string
	}{
		{name: "accepted", resp: response(http.StatusOK, accepted), kind: auditdomain.OutcomeSuccess},
		{name: "rejected", resp: response(http.StatusOK, rejected), kind: auditdomain.OutcomeValidationError, code: "0052"},
		{name: "auth code", resp: response(http.StatusOK, authRejected), kind: auditdomain.OutcomeAuthError, code: "0401"},
		{name: "unparseable 200", resp: response(http.StatusOK, "<html>"), kind: auditdomain.OutcomeValidationError},
		{name: "http 401", resp: response(http.StatusUnauthorized, ""), kind: auditdomain.OutcomeAuthError},
		{name: "http 403", resp: response(http.StatusForbidden, ""), kind: auditdomain.OutcomeAuthError},
		{name: "http 500", resp: response(http.StatusInternalServerError, ""), kind: auditdomain.OutcomeValidationError},
		{name: "timeout", err: &gateway.TimeoutError{Err: context.DeadlineExceeded}, kind: auditdomain.OutcomeTimeout},
		{name: "dial", err: &gateway.TransportError{Dial: true, Err: errors.New("refused")}, kind: auditdomain.OutcomeNetworkError},
		{name: "reset", err: &gateway.TransportError{Err: errors.New("reset")}, kind: auditdomain.OutcomeUnknown},
		{name: "other", err: errors.New("boom"), kind: auditdomain.OutcomeUnknown},
		{name: "nothing", kind: auditdomain.OutcomeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := Classify(tc.resp, tc.err)
			assert.Equal(t, tc.kind, o.Kind())
			assert.Equal(t, tc.code, ErrorCode(o))
		})
	}
}

func TestClassifySuccessCarriesResponse(t *testing.T) {
	o := Classify(response(http.StatusOK, `{"invoiceNumber":"N1","validationResponse":{"statusCode":"00","status":"valid"}}`), nil)

	success, ok := o.(Success)
	require.True(t, ok)
	assert.Equal(t, "N1", success.Response.InvoiceNumber)
	require.NotNil(t, GatewayResponse(o))
	assert.Nil(t, GatewayResponse(Timeout{}))
}
