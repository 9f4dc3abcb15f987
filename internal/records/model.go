package records

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Logical collection names used in change events.
const (
	CollectionItems   = "items"
	CollectionClockIn = "clockin"
)

const (
	// ClockInFilterLimit caps clock-in filter results.
	ClockInFilterLimit = 100
	// AggregateLimit caps the number of email groups returned.
	AggregateLimit = 100
)

// Item is the stored form of an inventory item.
type Item struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	Email      string             `bson:"email"`
	ItemName   string             `bson:"item_name"`
	Quantity   int                `bson:"quantity"`
	ExpiryDate string             `bson:"expiry_date"`
	InsertDate time.Time          `bson:"insert_date"`
}

// ItemView is an Item as returned to callers, with the identifier as a hex string.
type ItemView struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ItemName   string    `json:"item_name"`
	Quantity   int       `json:"quantity"`
	ExpiryDate string    `json:"expiry_date"`
	InsertDate time.Time `json:"insert_date"`
}

// ItemCreate is the creation payload. Every field is required.
type ItemCreate struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	ItemName   string `json:"item_name" binding:"required"`
	Quantity   *int   `json:"quantity" binding:"required"`
	ExpiryDate string `json:"expiry_date" binding:"required,datetime=2006-01-02"`
}

// ItemUpdate is a partial update. Nil fields are left untouched.
type ItemUpdate struct {
	Name       *string `json:"name" binding:"omitempty,min=1"`
	Email      *string `json:"email" binding:"omitempty,email"`
	ItemName   *string `json:"item_name" binding:"omitempty,min=1"`
	Quantity   *int    `json:"quantity"`
	ExpiryDate *string `json:"expiry_date" binding:"omitempty,datetime=2006-01-02"`
}

// Empty reports whether the update carries no fields.
func (u ItemUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.ItemName == nil && u.Quantity == nil && u.ExpiryDate == nil
}

// ItemList is the result of an item filter.
type ItemList struct {
	Items []ItemView `json:"items"`
	Count int        `json:"count"`
}

// EmailCount is one group of the by-email aggregation.
type EmailCount struct {
	Email string `bson:"_id" json:"_id"`
	Count int    `bson:"count" json:"count"`
}

// ClockIn is the stored form of a clock-in record.
type ClockIn struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	Location       string             `bson:"location"`
	InsertDatetime time.Time          `bson:"insert_datetime"`
}

// ClockInView is a ClockIn as returned to callers.
type ClockInView struct {
	ID             string    `json:"_id"`
	Email          string    `json:"email"`
	Location       string    `json:"location"`
	InsertDatetime time.Time `json:"insert_datetime"`
}

type ClockInCreate struct {
	Email    string `json:"email" binding:"required,email"`
	Location string `json:"location" binding:"required"`
}

type ClockInUpdate struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Location *string `json:"location" binding:"omitempty,min=1"`
}

func (u ClockInUpdate) Empty() bool {
	return u.Email == nil && u.Location == nil
}

// UpdateResult reports what a store update touched.
type UpdateResult struct {
	Matched  int64
	Modified int64
}
