package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles. A user is exactly one of these for their lifetime.
const (
	RoleFarmer   = "farmer"
	RoleCustomer = "customer"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleFarmer || role == RoleCustomer
}

// Address is a structured postal address embedded in users and orders.
type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
}

// FarmerProfile holds the farmer-only fields. Present iff Role == farmer.
type FarmerProfile struct {
	FarmName        string `bson:"farmName" json:"farmName"`
	FarmDescription string `bson:"farmDescription,omitempty" json:"farmDescription,omitempty"`
	FarmImage       string `bson:"farmImage,omitempty" json:"farmImage,omitempty"`
}

// CustomerProfile holds the customer-only fields. Present iff Role == customer.
type CustomerProfile struct {
	Preferences []string `bson:"preferences,omitempty" json:"preferences,omitempty"`
}

// User is a marketplace account, farmer or customer.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"` // bcrypt hash, never serialised
	Role     string             `bson:"role" json:"role"`
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address  *Address           `bson:"address,omitempty" json:"address,omitempty"`

	Farmer   *FarmerProfile   `bson:"farmer,omitempty" json:"farmer,omitempty"`
	Customer *CustomerProfile `bson:"customer,omitempty" json:"customer,omitempty"`

	Avatar     string     `bson:"avatar,omitempty" json:"avatar,omitempty"`
	IsVerified bool       `bson:"isVerified" json:"isVerified"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	LastLogin  *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
}
