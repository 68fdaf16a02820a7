package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Target is where and as whom one call is made.
type Target struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// Client posts invoice documents to the gateway. Errors are *TimeoutError or *TransportError;
// any HTTP response, whatever its status, is returned as a Response.
type Client interface {
	Submit(ctx context.Context, target Target, doc GatewayInvoiceDocument) (*Response, error)
	Validate(ctx context.Context, target Target, doc GatewayInvoiceDocument) (*Response, error)
}

type HTTPClient struct {
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPClient(log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{},
		log:        log.Named("gateway.client"),
	}
}

// NewHTTPClientWith uses a caller-supplied http.Client, mostly for tests.
func NewHTTPClientWith(httpClient *http.Client, log *zap.Logger) *HTTPClient {
	return &HTTPClient{httpClient: httpClient, log: log.Named("gateway.client")}
}

func (c *HTTPClient) Submit(ctx context.Context, target Target, doc GatewayInvoiceDocument) (*Response, error) {
	return c.post(ctx, target, doc)
}

func (c *HTTPClient) Validate(ctx context.Context, target Target, doc GatewayInvoiceDocument) (*Response, error) {
	return c.post(ctx, target, doc)
}

func (c *HTTPClient) post(ctx context.Context, target Target, doc GatewayInvoiceDocument) (*Response, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway document: %w", err)
	}

	if target.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, target.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := strings.TrimSpace(target.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(target.Endpoint, time.Since(start), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		// headers arrived, so the gateway has the document; never a retryable timeout
		return nil, &TransportError{Endpoint: target.Endpoint, Elapsed: elapsed, Err: fmt.Errorf("failed to read gateway response: %w", err)}
	}

	c.log.Debug("gateway responded",
		zap.String("endpoint", target.Endpoint),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("latency", elapsed),
	)
	return &Response{
		Endpoint:   target.Endpoint,
		StatusCode: resp.StatusCode,
		Body:       payload,
		Latency:    elapsed,
	}, nil
}

func classifyTransport(endpoint string, elapsed time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Endpoint: endpoint, Elapsed: elapsed, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Endpoint: endpoint, Elapsed: elapsed, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{Endpoint: endpoint, Dial: true, Elapsed: elapsed, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &TransportError{Endpoint: endpoint, Dial: true, Elapsed: elapsed, Err: err}
	}
	return &TransportError{Endpoint: endpoint, Elapsed: elapsed, Err: err}
}
