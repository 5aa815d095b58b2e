// Package payments charges a checkout total through a payment gateway.
// The core only sees approve or fail; it never captures or refunds itself.
package payments

import (
	"context"
	"fmt"
	"math"
	"sync"
)

type ChargeRequest struct {
	Amount        float64 // currency units, e.g. 150.50
	Currency      string
	Reference     string // idempotency and metadata reference
	Description   string
	PaymentMethod string // gateway token for the payer's instrument
}

type ChargeResult struct {
	Reference string // gateway-side id, e.g. a PaymentIntent id
	Status    string
}

// DeclinedError is a definitive refusal by the gateway. Anything else
// returned by Charge is a transport or gateway failure.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	if e.Reason == "" {
		return "payment declined"
	}
	return "payment declined: " + e.Reason
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// ToMinorUnits converts a currency amount to rounded cents.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FakeGateway approves every charge unless Decline is set. It records each
// request.
type FakeGateway struct {
	mu       sync.Mutex
	Decline  bool
	Err      error
	Requests []ChargeRequest
}

func (f *FakeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return ChargeResult{}, f.Err
	}
	if f.Decline {
		return ChargeResult{}, &DeclinedError{Reason: "card_declined"}
	}
	return ChargeResult{Reference: fmt.Sprintf("fake_%d", len(f.Requests)), Status: "succeeded"}, nil
}
