package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/v1/invoices"),
		attribute.String("gateway.token", "abc"),
		attribute.String("buyer_ntn", "1234567"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorRedactsBearer(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("Authorization: Bearer xyz rejected")), "redacted error")
	assert.EqualError(t, SafeError(errors.New("boom")), "boom")
}
