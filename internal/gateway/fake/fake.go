// Package fake provides a scriptable in-memory gateway.
package fake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/taxgate/internal/gateway"
)

type Behavior string

const (
	BehaviorSuccess               Behavior = "success"
	BehaviorValidationErrorHeader Behavior = "validation_error_header"
	BehaviorValidationErrorItem   Behavior = "validation_error_item"
	BehaviorAuthError             Behavior = "auth_error"
	BehaviorInvalidBuyerNTN       Behavior = "invalid_buyer_ntn"
	BehaviorMissingHSCode         Behavior = "missing_hs_code"
	BehaviorMissingRate           Behavior = "missing_rate"
	BehaviorSelfInvoicing         Behavior = "self_invoicing"
	BehaviorDuplicateInvoice      Behavior = "duplicate_invoice"
	BehaviorUnauthorized          Behavior = "unauthorized"
	BehaviorServerError           Behavior = "server_error"
	BehaviorTimeout               Behavior = "timeout"
	BehaviorNetworkError          Behavior = "network_error"
	BehaviorPartialTimeout        Behavior = "partial_timeout"
)

// Call is one recorded request.
type Call struct {
	Number   int
	Endpoint string
	Token    string
	Document gateway.GatewayInvoiceDocument
	Behavior Behavior
	At       time.Time
}

// Gateway answers according to a per-call script, then the configured behavior.
type Gateway struct {
	mu               sync.Mutex
	behavior         Behavior
	partialThreshold int
	script           []Behavior
	calls            []Call
	now              func() time.Time
}

func New() *Gateway {
	return &Gateway{
		behavior:         BehaviorSuccess,
		partialThreshold: 1,
		now:              time.Now,
	}
}

// WithClock sets the time source used for call records and invoice numbers.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	return g
}

func (g *Gateway) Configure(b Behavior) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.behavior = b
}

// ConfigurePartialTimeout makes the first n calls time out and later calls succeed.
func (g *Gateway) ConfigurePartialTimeout(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.behavior = BehaviorPartialTimeout
	g.partialThreshold = n
}

// Script queues behaviors for the next calls, one per call.
func (g *Gateway) Script(bs ...Behavior) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.script = append(g.script, bs...)
}

func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.behavior = BehaviorSuccess
	g.partialThreshold = 1
	g.script = nil
	g.calls = nil
}

func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

func (g *Gateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *Gateway) LastCall() (Call, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return Call{}, false
	}
	return g.calls[len(g.calls)-1], true
}

func (g *Gateway) Submit(ctx context.Context, target gateway.Target, doc gateway.GatewayInvoiceDocument) (*gateway.Response, error) {
	return g.respond(target, doc)
}

func (g *Gateway) Validate(ctx context.Context, target gateway.Target, doc gateway.GatewayInvoiceDocument) (*gateway.Response, error) {
	return g.respond(target, doc)
}

func (g *Gateway) respond(target gateway.Target, doc gateway.GatewayInvoiceDocument) (*gateway.Response, error) {
	g.mu.Lock()
	behavior := g.behavior
	if len(g.script) > 0 {
		behavior = g.script[0]
		g.script = g.script[1:]
	}
	number := len(g.calls) + 1
	if behavior == BehaviorPartialTimeout {
		behavior = BehaviorSuccess
		if number <= g.partialThreshold {
			behavior = BehaviorTimeout
		}
	}
	now := g.now()
	g.calls = append(g.calls, Call{
		Number:   number,
		Endpoint: target.Endpoint,
		Token:    target.Token,
		Document: doc,
		Behavior: behavior,
		At:       now,
	})
	g.mu.Unlock()

	switch behavior {
	case BehaviorTimeout:
		return nil, &gateway.TimeoutError{Endpoint: target.Endpoint, Elapsed: target.Timeout, Err: context.DeadlineExceeded}
	case BehaviorNetworkError:
		return nil, &gateway.TransportError{Endpoint: target.Endpoint, Dial: true, Err: errors.New("connection refused")}
	case BehaviorUnauthorized:
		return reply(target, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	case BehaviorServerError:
		return reply(target, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	dated := now.Format("2006-01-02 15:04:05")
	return reply(target, http.StatusOK, body(behavior, doc, dated, now))
}

func body(behavior Behavior, doc gateway.GatewayInvoiceDocument, dated string, now time.Time) gateway.GatewayResponse {
	switch behavior {
	case BehaviorValidationErrorHeader:
		return invalid(dated, "0052", "Provide proper HS Code with invoice no. null")
	case BehaviorValidationErrorItem:
		return gateway.GatewayResponse{
			Dated: dated,
			ValidationResponse: gateway.ValidationResponse{
				StatusCode: gateway.StatusCodeOK,
				Status:     "invalid",
				InvoiceStatuses: []gateway.ItemStatus{{
					ItemSNo:    "1",
					StatusCode: "01",
					Status:     "Invalid",
					ErrorCode:  "0046",
					Error:      "Provide rate.",
				}},
			},
		}
	case BehaviorAuthError:
		return invalid(dated, "0401", "Unauthorized access: Provided seller registration number is not 13 digits (CNIC) or 7 digits (NTN) or the authorized token does not exist against seller registration number")
	case BehaviorInvalidBuyerNTN:
		return invalid(dated, "0002", "Buyer Registration Number or NTN is not in proper format, please provide buyer registration number in 13 digits or NTN in 7 or 9 digits")
	case BehaviorMissingHSCode:
		return invalid(dated, "0052", "Please provide valid HS Code against invoice no: null")
	case BehaviorMissingRate:
		return invalid(dated, "0046", "Rate cannot be empty, please provide valid rate as per selected Sales Type.")
	case BehaviorSelfInvoicing:
		return invalid(dated, "0058", "Buyer and Seller Registration number are same, this type of invoice is not allowed")
	case BehaviorDuplicateInvoice:
		return invalid(dated, "0064", "Reference invoice already exist.")
	default:
		return success(doc, dated, now)
	}
}

// InvoiceNumber formats a gateway number the way the live gateway issues them.
func InvoiceNumber(sellerNTN string, at time.Time) string {
	ntn := strings.ReplaceAll(sellerNTN, "-", "")
	if ntn == "" {
		ntn = "0000000"
	}
	return ntn + "DI" + strconv.FormatInt(at.UnixMilli(), 10)
}

func success(doc gateway.GatewayInvoiceDocument, dated string, now time.Time) gateway.GatewayResponse {
	number := InvoiceNumber(doc.SellerNTNCNIC, now)
	statuses := make([]gateway.ItemStatus, 0, len(doc.Items))
	for i := range doc.Items {
		itemNo := fmt.Sprintf("%s-%d", number, i+1)
		statuses = append(statuses, gateway.ItemStatus{
			ItemSNo:    strconv.Itoa(i + 1),
			StatusCode: gateway.StatusCodeOK,
			Status:     "Valid",
			InvoiceNo:  &itemNo,
		})
	}
	return gateway.GatewayResponse{
		InvoiceNumber: number,
		Dated:         dated,
		ValidationResponse: gateway.ValidationResponse{
			StatusCode:      gateway.StatusCodeOK,
			Status:          "Valid",
			InvoiceStatuses: statuses,
		},
	}
}

func invalid(dated, code, message string) gateway.GatewayResponse {
	return gateway.GatewayResponse{
		Dated: dated,
		ValidationResponse: gateway.ValidationResponse{
			StatusCode: "01",
			Status:     "Invalid",
			ErrorCode:  code,
			Error:      message,
		},
	}
}

func reply(target gateway.Target, status int, v any) (*gateway.Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &gateway.Response{
		Endpoint:   target.Endpoint,
		StatusCode: status,
		Body:       b,
		Latency:    time.Millisecond,
	}, nil
}

var _ gateway.Client = (*Gateway)(nil)
