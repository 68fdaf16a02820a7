package fake

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/taxgate/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	target = gateway.Target{Endpoint: "https://gateway.test/submit", Token: "t", Timeout: time.Second}
	doc    = gateway.GatewayInvoiceDocument{
		SellerNTNCNIC: "765-4321",
		Items:         []gateway.GatewayInvoiceItem{{HSCode: "0101.2100"}, {HSCode: "0101.2900"}},
	}
	at = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
)

func newGateway() *Gateway {
	return New().WithClock(func() time.Time { return at })
}

func TestSuccess(t *testing.T) {
	g := newGateway()

	resp, err := g.Submit(context.Background(), target, doc)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	parsed, err := gateway.ParseResponse(resp.Body)
	require.NoError(t, err)
	assert.True(t, parsed.Accepted())
	assert.Equal(t, InvoiceNumber("7654321", at), parsed.InvoiceNumber)
	assert.Equal(t, "7654321DI1736931600000", parsed.InvoiceNumber)
	assert.Len(t, parsed.ValidationResponse.InvoiceStatuses, 2)

	call, ok := g.LastCall()
	require.True(t, ok)
	assert.Equal(t, 1, call.Number)
	assert.Equal(t, target.Endpoint, call.Endpoint)
	assert.Equal(t, BehaviorSuccess, call.Behavior)
}

func TestRejections(t *testing.T) {
	cases := map[Behavior]string{
		BehaviorValidationErrorHeader: "0052",
		BehaviorValidationErrorItem:   "0046",
		BehaviorAuthError:             "0401",
		BehaviorInvalidBuyerNTN:       "0002",
		BehaviorMissingHSCode:         "0052",
		BehaviorMissingRate:           "0046",
		BehaviorSelfInvoicing:         "0058",
		BehaviorDuplicateInvoice:      "0064",
	}
	for behavior, code := range cases {
		t.Run(string(behavior), func(t *testing.T) {
			g := newGateway()
			g.Configure(behavior)

			resp, err := g.Submit(context.Background(), target, doc)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			parsed, err := gateway.ParseResponse(resp.Body)
			require.NoError(t, err)
			assert.False(t, parsed.Accepted())
			assert.Equal(t, code, parsed.ErrorCode())
		})
	}
}

func TestTransportFailures(t *testing.T) {
	g := newGateway()
	g.Configure(BehaviorTimeout)
	_, err := g.Submit(context.Background(), target, doc)
	var timeoutErr *gateway.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)

	g.Configure(BehaviorNetworkError)
	_, err = g.Submit(context.Background(), target, doc)
	var transportErr *gateway.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Dial)

	g.Configure(BehaviorUnauthorized)
	resp, err := g.Submit(context.Background(), target, doc)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Equal(t, 3, g.CallCount())
}

func TestPartialTimeout(t *testing.T) {
	g := newGateway()
	g.ConfigurePartialTimeout(2)

	for i := 0; i < 2; i++ {
		_, err := g.Submit(context.Background(), target, doc)
		var timeoutErr *gateway.TimeoutError
		assert.ErrorAs(t, err, &timeoutErr)
	}
	resp, err := g.Submit(context.Background(), target, doc)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	calls := g.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, BehaviorTimeout, calls[0].Behavior)
	assert.Equal(t, BehaviorSuccess, calls[2].Behavior)
}

func TestScriptThenFallback(t *testing.T) {
	g := newGateway()
	g.Configure(BehaviorMissingRate)
	g.Script(BehaviorTimeout, BehaviorSuccess)

	_, err := g.Submit(context.Background(), target, doc)
	assert.Error(t, err)
	_, err = g.Submit(context.Background(), target, doc)
	assert.NoError(t, err)
	resp, err := g.Submit(context.Background(), target, doc)
	require.NoError(t, err)
	parsed, err := gateway.ParseResponse(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "0046", parsed.ErrorCode())

	g.Reset()
	assert.Zero(t, g.CallCount())
	_, ok := g.LastCall()
	assert.False(t, ok)
}
