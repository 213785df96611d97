package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category classifies a product listing.
type Category string

const (
	CategoryVegetables Category = "vegetables"
	CategoryFruits     Category = "fruits"
	CategoryGrains     Category = "grains"
	CategoryDairy      Category = "dairy"
	CategoryMeat       Category = "meat"
	CategoryPoultry    Category = "poultry"
	CategoryHerbs      Category = "herbs"
	CategoryFlowers    Category = "flowers"
	CategoryOther      Category = "other"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryVegetables, CategoryFruits, CategoryGrains, CategoryDairy,
	CategoryMeat, CategoryPoultry, CategoryHerbs, CategoryFlowers,
	CategoryOther,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Unit is the unit of sale for a product.
type Unit string

const (
	UnitKg     Unit = "kg"
	UnitLb     Unit = "lb"
	UnitPiece  Unit = "piece"
	UnitDozen  Unit = "dozen"
	UnitBunch  Unit = "bunch"
	UnitBag    Unit = "bag"
	UnitLiter  Unit = "liter"
	UnitGallon Unit = "gallon"
)

// Units lists every valid unit of sale.
var Units = []Unit{
	UnitKg, UnitLb, UnitPiece, UnitDozen, UnitBunch, UnitBag,
	UnitLiter, UnitGallon,
}

// IsValid reports whether u is a known unit.
func (u Unit) IsValid() bool {
	for _, v := range Units {
		if u == v {
			return true
		}
	}
	return false
}

// GeoPoint is a GeoJSON point, longitude first.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// Product is a farmer's listing.
//
// Quantity and IsAvailable are independent: a farmer can keep a listing
// visible at zero stock, or hide a stocked one.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FarmerID    primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    Category           `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`
	Unit        Unit               `bson:"unit" json:"unit"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Images      []string           `bson:"images,omitempty" json:"images,omitempty"`
	IsOrganic   bool               `bson:"isOrganic" json:"isOrganic"`
	IsAvailable bool               `bson:"isAvailable" json:"isAvailable"`
	HarvestDate *time.Time         `bson:"harvestDate,omitempty" json:"harvestDate,omitempty"`
	ExpiryDate  *time.Time         `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	Location    *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Rating      float64            `bson:"rating" json:"rating"`
	ReviewCount int                `bson:"reviewCount" json:"reviewCount"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
