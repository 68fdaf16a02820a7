package gateway

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
)

const StatusCodeOK = "00"

var ErrMalformedResponse = errors.New("malformed_gateway_response")

// Response is a raw HTTP exchange with the gateway.
type Response struct {
	Endpoint   string
	StatusCode int
	Body       []byte
	Latency    time.Duration
}

type GatewayResponse struct {
	InvoiceNumber      string             `json:"invoiceNumber"`
	Dated              string             `json:"dated"`
	ValidationResponse ValidationResponse `json:"validationResponse"`
}

type ValidationResponse struct {
	StatusCode      string       `json:"statusCode"`
	Status          string       `json:"status"`
	ErrorCode       string       `json:"errorCode,omitempty"`
	Error           string       `json:"error"`
	InvoiceStatuses []ItemStatus `json:"invoiceStatuses"`
}

type ItemStatus struct {
	ItemSNo    string  `json:"itemSNo"`
	StatusCode string  `json:"statusCode"`
	Status     string  `json:"status"`
	InvoiceNo  *string `json:"invoiceNo"`
	ErrorCode  string  `json:"errorCode"`
	Error      string  `json:"error"`
}

// ParseResponse decodes a gateway body. A body without a validation block is malformed.
func ParseResponse(body []byte) (*GatewayResponse, error) {
	var raw struct {
		GatewayResponse
		ValidationResponse *ValidationResponse `json:"validationResponse"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	if raw.ValidationResponse == nil {
		return nil, ErrMalformedResponse
	}

	out := raw.GatewayResponse
	out.ValidationResponse = *raw.ValidationResponse
	return &out, nil
}

// Accepted reports whether the gateway registered the document with every line valid.
func (r GatewayResponse) Accepted() bool {
	v := r.ValidationResponse
	if v.StatusCode != StatusCodeOK || !strings.EqualFold(strings.TrimSpace(v.Status), "valid") {
		return false
	}
	return lo.EveryBy(v.InvoiceStatuses, func(item ItemStatus) bool {
		return item.StatusCode == StatusCodeOK
	})
}

// ErrorCode returns the header error code, or the first failing line's code.
func (r GatewayResponse) ErrorCode() string {
	if code := strings.TrimSpace(r.ValidationResponse.ErrorCode); code != "" {
		return code
	}
	item, ok := lo.Find(r.ValidationResponse.InvoiceStatuses, func(item ItemStatus) bool {
		return item.StatusCode != StatusCodeOK && strings.TrimSpace(item.ErrorCode) != ""
	})
	if !ok {
		return ""
	}
	return strings.TrimSpace(item.ErrorCode)
}

// ValidationJSON returns the validation block as stored on the invoice.
func (r GatewayResponse) ValidationJSON() []byte {
	b, err := json.Marshal(r.ValidationResponse)
	if err != nil {
		return nil
	}
	return b
}
