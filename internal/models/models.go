package models

import "time"

type LocationType string

const (
	LocationAirport      LocationType = "Airport"
	LocationTrainStation LocationType = "Train Station"
	LocationHotel        LocationType = "Hotel"
	LocationTouristSite  LocationType = "Tourist Site"
	LocationBusTerminal  LocationType = "Bus Terminal"
	LocationCity         LocationType = "City"
)

type VehicleType string

const (
	VehicleSedan VehicleType = "Sedan"
	VehicleSUV   VehicleType = "SUV"
	VehicleVan   VehicleType = "Van"
	VehicleBus   VehicleType = "Bus"
)

type VehicleCategory string

const (
	CategoryStandard      VehicleCategory = "Standard"
	CategoryComfort       VehicleCategory = "Comfort"
	CategoryLuxury        VehicleCategory = "Luxury"
	CategoryLuxurySupreme VehicleCategory = "Luxury Supreme"
)

type Coord struct {
	Lat float64 `json:"latitude" bson:"latitude"`
	Lon float64 `json:"longitude" bson:"longitude"`
}

type City struct {
	ID      string `json:"id" bson:"_id"`
	Name    string `json:"name" bson:"name"`
	Country string `json:"country" bson:"country"`
}

type Location struct {
	ID          string       `json:"id" bson:"_id"`
	Name        string       `json:"name" bson:"name"`
	Type        LocationType `json:"type" bson:"type"`
	CityID      string       `json:"city" bson:"city"`
	Coordinates Coord        `json:"coordinates" bson:"coordinates"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Images      []string     `json:"images,omitempty" bson:"images,omitempty"`
	IsFeatured  bool         `json:"isFeatured" bson:"isFeatured"`
}

type Provider struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Email       string    `json:"email" bson:"email"`
	PhoneNumber string    `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// Route is directional: a route from A to B says nothing about B to A.
type Route struct {
	ID            string   `json:"id" bson:"_id"`
	OriginID      string   `json:"origin" bson:"origin"`
	DestinationID string   `json:"destination" bson:"destination"`
	Distance      float64  `json:"distance" bson:"distance"`           // km
	EstimatedTime float64  `json:"estimatedTime" bson:"estimatedTime"` // minutes
	VehicleIDs    []string `json:"vehicles" bson:"vehicles"`
}

type Vehicle struct {
	ID         string          `json:"id" bson:"_id"`
	Name       string          `json:"name" bson:"name"`
	Type       VehicleType     `json:"type" bson:"type"`
	Capacity   int             `json:"capacity" bson:"capacity"`
	Luggage    int             `json:"luggage" bson:"luggage"`
	Category   VehicleCategory `json:"category" bson:"category"`
	BasePrice  float64         `json:"basePrice" bson:"basePrice"`
	Image      string          `json:"image,omitempty" bson:"image,omitempty"`
	ProviderID string          `json:"provider" bson:"provider"`
}

type Testimonial struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Content   string    `json:"content" bson:"content"`
	Rating    int       `json:"rating" bson:"rating"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
