package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is an order's position in the fulfilment lifecycle.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// Statuses lists every valid order status.
var Statuses = []Status{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
	StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// next maps each status to its single forward successor.
var next = map[Status]Status{
	StatusPending:        StatusConfirmed,
	StatusConfirmed:      StatusPreparing,
	StatusPreparing:      StatusReady,
	StatusReady:          StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

// CanTransition reports whether an order may move from s to target.
// Orders only move forward one step at a time; cancellation is allowed
// from any non-terminal state.
func (s Status) CanTransition(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	return next[s] == target
}

// OrderItem is a priced snapshot of a product at placement time.
// Later edits to the product never change what the customer agreed to.
type OrderItem struct {
	ProductID   primitive.ObjectID `bson:"productId" json:"productId"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	UnitPrice   float64            `bson:"unitPrice" json:"unitPrice"`
	TotalPrice  float64            `bson:"totalPrice" json:"totalPrice"`
	Unit        Unit               `bson:"unit" json:"unit"`
}

// Order is a customer's purchase from a single farmer.
type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID primitive.ObjectID `bson:"customerId" json:"customerId"`
	FarmerID   primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Items      []OrderItem        `bson:"items" json:"items"`
	Subtotal   float64            `bson:"subtotal" json:"subtotal"`
	// TotalAmount equals Subtotal until fees or delivery charges exist.
	TotalAmount          float64    `bson:"totalAmount" json:"totalAmount"`
	DeliveryAddress      Address    `bson:"deliveryAddress" json:"deliveryAddress"`
	DeliveryInstructions string     `bson:"deliveryInstructions,omitempty" json:"deliveryInstructions,omitempty"`
	CustomerNotes        string     `bson:"customerNotes,omitempty" json:"customerNotes,omitempty"`
	Status               Status     `bson:"status" json:"status"`
	FarmerNotes          string     `bson:"farmerNotes,omitempty" json:"farmerNotes,omitempty"`
	ActualDelivery       *time.Time `bson:"actualDelivery,omitempty" json:"actualDelivery,omitempty"`
	Rating               int        `bson:"rating,omitempty" json:"rating,omitempty"`
	Review               string     `bson:"review,omitempty" json:"review,omitempty"`
	CreatedAt            time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Reviewed reports whether a review has already been submitted.
func (o *Order) Reviewed() bool {
	return o.Rating != 0
}
