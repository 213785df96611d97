package seeders

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmlink/app/models"
	"farmlink/pkg/auth"
	"farmlink/pkg/database"
)

func init() {
	Register("marketplace", SeedMarketplace)
}

// SeedMarketplace inserts two farmers, two customers, and a small
// catalogue so a fresh install has something to browse. Documents are
// inserted as-is; run it against an empty database.
func SeedMarketplace(ctx context.Context, db *database.DB) error {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	daysAgo := func(d int) *time.Time { t := now.AddDate(0, 0, -d); return &t }
	daysFromNow := func(d int) *time.Time { t := now.AddDate(0, 0, d); return &t }

	john := models.User{
		ID: primitive.NewObjectID(), Name: "John Farmer",
		Email: "john@farm.com", Password: hash, Role: models.RoleFarmer,
		Phone:     "1234567890",
		Address:   &models.Address{Street: "123 Farm Road", City: "Green Valley"},
		Farmer:    &models.FarmerProfile{FarmName: "Green Valley Farm"},
		CreatedAt: now,
	}
	sarah := models.User{
		ID: primitive.NewObjectID(), Name: "Sarah Farmer",
		Email: "sarah@farm.com", Password: hash, Role: models.RoleFarmer,
		Phone:     "2345678901",
		Address:   &models.Address{Street: "456 Organic Lane", City: "Fresh Meadows"},
		Farmer:    &models.FarmerProfile{FarmName: "Fresh Meadows Farm"},
		CreatedAt: now,
	}
	mike := models.User{
		ID: primitive.NewObjectID(), Name: "Mike Customer",
		Email: "mike@email.com", Password: hash, Role: models.RoleCustomer,
		Phone:     "3456789012",
		Address:   &models.Address{Street: "789 City Street", City: "Urban Center"},
		Customer:  &models.CustomerProfile{},
		CreatedAt: now,
	}
	lisa := models.User{
		ID: primitive.NewObjectID(), Name: "Lisa Customer",
		Email: "lisa@email.com", Password: hash, Role: models.RoleCustomer,
		Phone:     "4567890123",
		Address:   &models.Address{Street: "321 Suburban Ave", City: "Town Square"},
		Customer:  &models.CustomerProfile{},
		CreatedAt: now,
	}

	users := db.Collection(database.ColUsers)
	for _, u := range []models.User{john, sarah, mike, lisa} {
		if _, err := users.InsertOne(ctx, u); err != nil {
			return err
		}
	}

	catalogue := []models.Product{
		{
			FarmerID: john.ID, Name: "Fresh Organic Tomatoes",
			Description: "Sweet, juicy tomatoes grown without pesticides. Perfect for salads and cooking.",
			Category:    models.CategoryVegetables, Price: 2.99, Unit: models.UnitKg,
			Quantity: 50, IsOrganic: true, IsAvailable: true,
			HarvestDate: daysAgo(2), ExpiryDate: daysFromNow(7),
		},
		{
			FarmerID: john.ID, Name: "Sweet Corn",
			Description: "Fresh sweet corn picked this morning. Great for grilling or boiling.",
			Category:    models.CategoryVegetables, Price: 1.49, Unit: models.UnitPiece,
			Quantity: 100, IsAvailable: true,
			HarvestDate: daysAgo(1), ExpiryDate: daysFromNow(5),
		},
		{
			FarmerID: sarah.ID, Name: "Fresh Strawberries",
			Description: "Sweet and juicy strawberries. Perfect for desserts or eating fresh.",
			Category:    models.CategoryFruits, Price: 4.99, Unit: models.UnitKg,
			Quantity: 25, IsOrganic: true, IsAvailable: true,
			HarvestDate: daysAgo(1), ExpiryDate: daysFromNow(3),
		},
		{
			FarmerID: sarah.ID, Name: "Organic Carrots",
			Description: "Fresh organic carrots. Great for juicing, cooking, or eating raw.",
			Category:    models.CategoryVegetables, Price: 1.99, Unit: models.UnitKg,
			Quantity: 75, IsOrganic: true, IsAvailable: true,
			HarvestDate: daysAgo(3), ExpiryDate: daysFromNow(10),
		},
		{
			FarmerID: john.ID, Name: "Fresh Milk",
			Description: "Pure, fresh milk from grass-fed cows. No additives or preservatives.",
			Category:    models.CategoryDairy, Price: 3.49, Unit: models.UnitLiter,
			Quantity: 30, IsOrganic: true, IsAvailable: true,
			HarvestDate: daysAgo(1), ExpiryDate: daysFromNow(5),
		},
		{
			FarmerID: sarah.ID, Name: "Free-Range Eggs",
			Description: "Fresh eggs from free-range chickens. Rich in nutrients and flavor.",
			Category:    models.CategoryPoultry, Price: 5.99, Unit: models.UnitDozen,
			Quantity: 60, IsAvailable: true,
			HarvestDate: daysAgo(1), ExpiryDate: daysFromNow(21),
		},
		{
			FarmerID: john.ID, Name: "Honey",
			Description: "Pure, natural honey from local beehives. Great for tea and baking.",
			Category:    models.CategoryOther, Price: 8.99, Unit: models.UnitKg,
			Quantity: 20, IsOrganic: true, IsAvailable: true,
			HarvestDate: daysAgo(30), ExpiryDate: daysFromNow(365),
		},
		{
			FarmerID: sarah.ID, Name: "Fresh Basil",
			Description: "Aromatic fresh basil. Perfect for Italian dishes and pesto.",
			Category:    models.CategoryHerbs, Price: 2.49, Unit: models.UnitBunch,
			Quantity: 40, IsOrganic: true, IsAvailable: true,
			HarvestDate: daysAgo(1), ExpiryDate: daysFromNow(7),
		},
	}

	products := db.Collection(database.ColProducts)
	for i := range catalogue {
		catalogue[i].ID = primitive.NewObjectID()
		catalogue[i].CreatedAt = now
		catalogue[i].UpdatedAt = now
		if _, err := products.InsertOne(ctx, catalogue[i]); err != nil {
			return err
		}
	}

	// A pending order from Mike and a confirmed one from Lisa, mirroring
	// a realistic day-one state.
	orders := []models.Order{
		{
			ID:         primitive.NewObjectID(),
			CustomerID: mike.ID, FarmerID: john.ID,
			Items: []models.OrderItem{{
				ProductID: catalogue[0].ID, ProductName: catalogue[0].Name,
				Quantity: 2, UnitPrice: 2.99, TotalPrice: 5.98, Unit: models.UnitKg,
			}},
			Subtotal: 5.98, TotalAmount: 5.98,
			DeliveryAddress: *mike.Address,
			Status:          models.StatusPending,
			CreatedAt:       now.AddDate(0, 0, -1), UpdatedAt: now.AddDate(0, 0, -1),
		},
		{
			ID:         primitive.NewObjectID(),
			CustomerID: lisa.ID, FarmerID: sarah.ID,
			Items: []models.OrderItem{
				{
					ProductID: catalogue[2].ID, ProductName: catalogue[2].Name,
					Quantity: 1, UnitPrice: 4.99, TotalPrice: 4.99, Unit: models.UnitKg,
				},
				{
					ProductID: catalogue[3].ID, ProductName: catalogue[3].Name,
					Quantity: 3, UnitPrice: 1.99, TotalPrice: 5.97, Unit: models.UnitKg,
				},
			},
			Subtotal: 10.96, TotalAmount: 10.96,
			DeliveryAddress: *lisa.Address,
			Status:          models.StatusConfirmed,
			CreatedAt:       now.AddDate(0, 0, -2), UpdatedAt: now.AddDate(0, 0, -2),
		},
	}

	orderCol := db.Collection(database.ColOrders)
	for _, o := range orders {
		if _, err := orderCol.InsertOne(ctx, o); err != nil {
			return err
		}
	}
	return nil
}
