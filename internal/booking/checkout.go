package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/auth"
	"github.com/example/transfer-booking/internal/cart"
	"github.com/example/transfer-booking/internal/events"
	"github.com/example/transfer-booking/internal/matcher"
	"github.com/example/transfer-booking/internal/models"
	"github.com/example/transfer-booking/internal/observability"
	"github.com/example/transfer-booking/internal/payments"
)

// ReservationsRoom receives a notice for every completed checkout.
const ReservationsRoom = "reservations"

type EventEmitter interface {
	Emit(ctx context.Context, eventType, key string, payload any) error
}

type CheckoutRequest struct {
	Services      []cart.Service `json:"services" validate:"required,min=1,dive"`
	PaymentMethod string         `json:"paymentMethod"`
}

// Checkout charges the cart total and, only when the charge succeeds, writes
// the reservation as Paid.
type Checkout struct {
	Writer   *Writer
	Gateway  payments.Gateway
	Currency string
	Notifier matcher.Notifier // optional
	Events   EventEmitter     // optional
	Logger   *slog.Logger
}

func (c *Checkout) Run(ctx context.Context, id auth.Identity, req CheckoutRequest) (Created, error) {
	r, err := c.Writer.prepare(ctx, id, req.Services)
	if err != nil {
		observability.CheckoutFailures.WithLabelValues("invalid").Inc()
		return Created{}, err
	}

	charge, err := c.Gateway.Charge(ctx, payments.ChargeRequest{
		Amount:        r.TotalPrice,
		Currency:      c.Currency,
		Reference:     uuid.NewString(),
		Description:   fmt.Sprintf("Transfer reservation, %d service(s)", len(r.Services)),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		var declined *payments.DeclinedError
		reason := "gateway"
		if errors.As(err, &declined) {
			reason = "declined"
		}
		observability.CheckoutFailures.WithLabelValues(reason).Inc()
		return Created{}, apperr.Collaborator("charge", err)
	}

	r.PaymentStatus = models.PaymentPaid
	r.PaymentReference = charge.Reference
	created, err := c.Writer.insert(ctx, r)
	if err != nil {
		observability.CheckoutFailures.WithLabelValues("store").Inc()
		c.log().Error("reservation write failed after charge", "payment_reference", charge.Reference, "err", err)
		return Created{}, err
	}
	observability.ReservationsTotal.Inc()

	res := created.Reservation
	if c.Notifier != nil {
		msg := fmt.Sprintf("New reservation %s for %.2f", res.ReservationCode, res.TotalPrice)
		if err := c.Notifier.Publish(ctx, ReservationsRoom, msg); err != nil {
			c.log().Warn("reservation notice failed", "code", res.ReservationCode, "err", err)
		}
	}
	if c.Events != nil {
		if err := c.Events.Emit(ctx, events.TypeReservationCreated, res.ReservationCode, res); err != nil {
			c.log().Warn("reservation event failed", "code", res.ReservationCode, "err", err)
		}
	}
	return created, nil
}

func (c *Checkout) log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
