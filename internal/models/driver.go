package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverAvailability tracks whether a driver can take a new delivery.
// IsAvailable is false exactly while one non-terminal order references the
// driver as assigned.
type DriverAvailability struct {
	IsAvailable bool      `bson:"isAvailable" json:"isAvailable"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DriverRating is a running average over completed deliveries.
type DriverRating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

// Driver defines the persisted driver document. A driver is created at
// registration and deactivated rather than deleted.
type Driver struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	Name              string             `bson:"name" json:"name"`
	Phone             string             `bson:"phone,omitempty" json:"phone,omitempty"`
	VehicleType       string             `bson:"vehicleType" json:"vehicleType"`
	VehicleNumber     string             `bson:"vehicleNumber,omitempty" json:"vehicleNumber,omitempty"`
	Availability      DriverAvailability `bson:"availability" json:"availability"`
	Location          *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	LocationUpdatedAt *time.Time         `bson:"locationUpdatedAt,omitempty" json:"locationUpdatedAt,omitempty"`
	TotalDeliveries   int                `bson:"totalDeliveries" json:"totalDeliveries"`
	Rating            DriverRating       `bson:"rating" json:"rating"`
	IsActive          bool               `bson:"isActive" json:"isActive"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}
