package domain

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 2 * time.Second
)

type Decision int

const (
	DecisionStop Decision = iota
	DecisionRetry
)

func (d Decision) String() string {
	if d == DecisionRetry {
		return "retry"
	}
	return "stop"
}

// Policy retries timeouts only, with a fixed delay, up to MaxAttempts calls.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p Policy) Normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Decide is called after attempt attemptNumber (1-based) ended with o.
func (p Policy) Decide(o Outcome, attemptNumber int) Decision {
	p = p.Normalize()
	if _, ok := o.(Timeout); ok && attemptNumber < p.MaxAttempts {
		return DecisionRetry
	}
	return DecisionStop
}

// Schedule yields the wait before each retry and backoff.Stop once retries are used up.
func (p Policy) Schedule() backoff.BackOff {
	p = p.Normalize()
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.MaxAttempts-1))
}

// FinalStatus is the invoice status after a submission stopped on o.
func FinalStatus(o Outcome) invoicedomain.InvoiceStatus {
	if _, ok := o.(Success); ok {
		return invoicedomain.InvoiceStatusSubmitted
	}
	return invoicedomain.InvoiceStatusFailed
}
