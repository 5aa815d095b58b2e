package models

// Request bodies accepted by the HTTP API. Each carries its validation schema
// in struct tags; handlers reject a body before it reaches the core.

type SearchRequest struct {
	Pickup        string `json:"pickup" validate:"required"`
	Dropoff       string `json:"dropoff" validate:"required,nefield=Pickup"`
	Passengers    int    `json:"passengers" validate:"gte=1"`
	DepartureDate string `json:"departureDate" validate:"required,datetime=2006-01-02"`
	DepartureTime string `json:"departureTime,omitempty" validate:"omitempty,datetime=15:04"`
	IsRoundTrip   bool   `json:"isRoundTrip"`
	ReturnDate    string `json:"returnDate,omitempty" validate:"required_if=IsRoundTrip true,omitempty,datetime=2006-01-02"`
	ReturnTime    string `json:"returnTime,omitempty" validate:"omitempty,datetime=15:04"`
}

type CityRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Country string `json:"country" validate:"required,min=2"`
}

type LocationRequest struct {
	Name        string       `json:"name" validate:"required,min=2"`
	Type        LocationType `json:"type" validate:"required,oneof='Airport' 'Train Station' 'Hotel' 'Tourist Site' 'Bus Terminal' 'City'"`
	CityID      string       `json:"city" validate:"required"`
	Coordinates struct {
		Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
		Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	} `json:"coordinates"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty" validate:"omitempty,dive,url"`
	IsFeatured  bool     `json:"isFeatured"`
}

type ProviderRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
}

// RouteRequest leaves distance and estimatedTime optional; the catalog fills
// them from the endpoints' coordinates when they are zero.
type RouteRequest struct {
	OriginID      string   `json:"origin" validate:"required"`
	DestinationID string   `json:"destination" validate:"required,nefield=OriginID"`
	Distance      float64  `json:"distance" validate:"gte=0"`
	EstimatedTime float64  `json:"estimatedTime" validate:"gte=0"`
	VehicleIDs    []string `json:"vehicles" validate:"dive,required"`
}

type VehicleRequest struct {
	Name       string          `json:"name" validate:"required,min=2"`
	Type       VehicleType     `json:"type" validate:"required,oneof=Sedan SUV Van Bus"`
	Capacity   int             `json:"capacity" validate:"gt=0"`
	Luggage    int             `json:"luggage" validate:"gte=0"`
	Category   VehicleCategory `json:"category" validate:"required,oneof='Standard' 'Comfort' 'Luxury' 'Luxury Supreme'"`
	BasePrice  float64         `json:"basePrice" validate:"gt=0"`
	Image      string          `json:"image,omitempty" validate:"omitempty,url"`
	ProviderID string          `json:"provider" validate:"required"`
}

type TestimonialRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Content string `json:"content" validate:"required"`
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
}

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"firstName,omitempty" validate:"omitempty,min=2"`
	LastName    string `json:"lastName,omitempty" validate:"omitempty,min=2"`
	PhoneNumber string `json:"phoneNumber,omitempty" validate:"omitempty,e164"`
}

// CreateUserRequest is the staff form for accounts with an explicit role.
type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Role        Role   `json:"role" validate:"required,oneof=user admin superadmin"`
	FirstName   string `json:"firstName,omitempty" validate:"omitempty,min=2"`
	LastName    string `json:"lastName,omitempty" validate:"omitempty,min=2"`
	PhoneNumber string `json:"phoneNumber,omitempty" validate:"omitempty,e164"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LookupRequest struct {
	Code     string `json:"reservationCode" validate:"required"`
	Password string `json:"reservationPassword" validate:"required"`
}

type ServiceStatusRequest struct {
	Status ServiceStatus `json:"status" validate:"required,oneof=Pending Confirmed Completed Cancelled"`
}

type PaymentStatusRequest struct {
	Status PaymentStatus `json:"paymentStatus" validate:"required,oneof=Pending Paid Refunded"`
}
