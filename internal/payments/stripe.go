package payments

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// intentCreator is the slice of the stripe PaymentIntent client we use.
type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway charges by creating and confirming a PaymentIntent in one call.
type StripeGateway struct {
	intents  intentCreator
	currency string
}

func NewStripeGateway(apiKey, currency string) *StripeGateway {
	return &StripeGateway{
		intents:  &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: apiKey},
		currency: currency,
	}
}

func (s *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.PaymentMethod == "" {
		return ChargeResult{}, &DeclinedError{Reason: "missing payment method"}
	}
	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(ToMinorUnits(req.Amount)),
		Currency:           stripe.String(currency),
		Description:        stripe.String(req.Description),
		PaymentMethod:      stripe.String(req.PaymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	if req.Reference != "" {
		params.SetIdempotencyKey(req.Reference)
		params.AddMetadata("reference", req.Reference)
	}

	pi, err := s.intents.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Type == stripe.ErrorTypeCard {
			return ChargeResult{}, &DeclinedError{Reason: string(serr.Code)}
		}
		return ChargeResult{}, fmt.Errorf("stripe payment intent: %w", err)
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return ChargeResult{Reference: pi.ID, Status: string(pi.Status)}, nil
	default:
		return ChargeResult{}, &DeclinedError{Reason: string(pi.Status)}
	}
}
