package models

import "time"

type ServiceStatus string

const (
	ServicePending   ServiceStatus = "Pending"
	ServiceConfirmed ServiceStatus = "Confirmed"
	ServiceCompleted ServiceStatus = "Completed"
	ServiceCancelled ServiceStatus = "Cancelled"
)

func (s ServiceStatus) Valid() bool {
	switch s {
	case ServicePending, ServiceConfirmed, ServiceCompleted, ServiceCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// ReservationService is one (cart service x vehicle line) entry of a reservation.
type ReservationService struct {
	RouteID     string        `json:"route" bson:"route"`
	VehicleID   string        `json:"vehicle" bson:"vehicle"`
	PickupDate  string        `json:"pickupDate" bson:"pickupDate"`
	PickupTime  string        `json:"pickupTime" bson:"pickupTime"`
	IsRoundTrip bool          `json:"isRoundTrip" bson:"isRoundTrip"`
	ReturnDate  string        `json:"returnDate,omitempty" bson:"returnDate,omitempty"`
	ReturnTime  string        `json:"returnTime,omitempty" bson:"returnTime,omitempty"`
	Passengers  int           `json:"passengers" bson:"passengers"`
	Quantity    int           `json:"quantity" bson:"quantity"`
	Price       float64       `json:"price" bson:"price"`
	Status      ServiceStatus `json:"status" bson:"status"`
}

type Reservation struct {
	ID               string               `json:"id" bson:"_id"`
	ClientID         string               `json:"client" bson:"client"`
	Services         []ReservationService `json:"services" bson:"services"`
	TotalPrice       float64              `json:"totalPrice" bson:"totalPrice"`
	PaymentStatus    PaymentStatus        `json:"paymentStatus" bson:"paymentStatus"`
	PaymentReference string               `json:"paymentReference,omitempty" bson:"paymentReference,omitempty"`
	ReservationCode  string               `json:"reservationCode" bson:"reservationCode"`
	PasswordHash     string               `json:"-" bson:"reservationPassword"`
	CreatedAt        time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updatedAt"`
}
