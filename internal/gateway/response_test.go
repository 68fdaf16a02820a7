package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	body := []byte(`{
		"invoiceNumber": "7654321DI1736931600000",
		"dated": "2025-01-15 09:00:00",
		"validationResponse": {
			"statusCode": "00",
			"status": "Valid",
			"error": "",
			"invoiceStatuses": [
				{"itemSNo": "1", "statusCode": "00", "status": "Valid", "invoiceNo": "7654321DI1736931600000-1", "errorCode": "", "error": ""}
			]
		}
	}`)

	resp, err := ParseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "7654321DI1736931600000", resp.InvoiceNumber)
	assert.True(t, resp.Accepted())
	assert.Empty(t, resp.ErrorCode())
	assert.JSONEq(t, `{"statusCode":"00","status":"Valid","error":"","invoiceStatuses":[{"itemSNo":"1","statusCode":"00","status":"Valid","invoiceNo":"7654321DI1736931600000-1","errorCode":"","error":""}]}`, string(resp.ValidationJSON()))
}

func TestParseResponseRejected(t *testing.T) {
	cases := []struct {
		name string
		body string
		code string
	}{
		{
			name: "header error",
			body: `{"dated":"x","validationResponse":{"statusCode":"01","status":"Invalid","errorCode":"0401","error":"Unauthorized access"}}`,
			code: "0401",
		},
		{
			name: "item error",
			body: `{"dated":"x","validationResponse":{"statusCode":"00","status":"invalid","error":"","invoiceStatuses":[{"itemSNo":"1","statusCode":"01","status":"Invalid","invoiceNo":null,"errorCode":"0046","error":"Provide rate."}]}}`,
			code: "0046",
		},
		{
			name: "valid header with failing line",
			body: `{"validationResponse":{"statusCode":"00","status":"VALID","invoiceStatuses":[{"itemSNo":"1","statusCode":"00"},{"itemSNo":"2","statusCode":"03","errorCode":"0052"}]}}`,
			code: "0052",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tc.body))
			require.NoError(t, err)
			assert.False(t, resp.Accepted())
			assert.Equal(t, tc.code, resp.ErrorCode())
		})
	}
}

func TestParseResponseMalformed(t *testing.T) {
	for _, body := range []string{``, `not json`, `{"invoiceNumber":"x"}`, `[]`} {
		_, err := ParseResponse([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedResponse, body)
	}
}

func TestAcceptedIsCaseInsensitive(t *testing.T) {
	resp := GatewayResponse{ValidationResponse: ValidationResponse{StatusCode: "00", Status: "valid"}}
	assert.True(t, resp.Accepted())
}
