package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPClientSubmit(t *testing.T) {
	var gotAuth, gotType string
	var gotDoc GatewayInvoiceDocument
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotDoc))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"invoiceNumber":"N1","validationResponse":{"statusCode":"00","status":"Valid"}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(zap.NewNop())
	doc := BuildPayload(testInvoice(invoicedomain.DocumentTypeSale), testSeller, nil)
	resp, err := client.Submit(context.Background(), Target{Endpoint: srv.URL, Token: "secret", Timeout: time.Second}, doc)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, doc.SellerNTNCNIC, gotDoc.SellerNTNCNIC)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, srv.URL, resp.Endpoint)

	parsed, err := ParseResponse(resp.Body)
	require.NoError(t, err)
	assert.True(t, parsed.Accepted())
}

func TestHTTPClientReturnsErrorStatusesAsResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(zap.NewNop())
	resp, err := client.Submit(context.Background(), Target{Endpoint: srv.URL, Timeout: time.Second}, GatewayInvoiceDocument{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"invalid token"}`, string(resp.Body))
}

func TestHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewHTTPClient(zap.NewNop())
	_, err := client.Submit(context.Background(), Target{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, GatewayInvoiceDocument{})

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, srv.URL, timeoutErr.Endpoint)
}

func TestHTTPClientBodyTimeoutIsNotRetryable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"invoiceNumber":`))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewHTTPClient(zap.NewNop())
	_, err := client.Submit(context.Background(), Target{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, GatewayInvoiceDocument{})

	var timeoutErr *TimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.False(t, transportErr.Dial)
}

func TestHTTPClientDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewHTTPClient(zap.NewNop())
	_, err = client.Submit(context.Background(), Target{Endpoint: "http://" + addr, Timeout: time.Second}, GatewayInvoiceDocument{})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Dial)
}

func TestClassifyTransport(t *testing.T) {
	err := classifyTransport("e", time.Second, errors.New("connection reset by peer"))
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.False(t, transportErr.Dial)

	err = classifyTransport("e", time.Second, &net.DNSError{Err: "no such host", Name: "gateway.invalid", IsNotFound: true})
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Dial)

	err = classifyTransport("e", time.Second, context.DeadlineExceeded)
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}
