package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product defines the persisted product document. Stock is a shared counter:
// checkout decrements it with a floor check and cancellation restores it.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FarmerID    primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	Price       float64            `bson:"price" json:"price"`
	Unit        string             `bson:"unit" json:"unit"`
	Stock       int                `bson:"stock" json:"stock"`
	InStock     bool               `bson:"-" json:"inStock"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
