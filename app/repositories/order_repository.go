package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"farmlink/app/models"
	"farmlink/pkg/paginate"
)

// OrderRepository handles database operations for orders.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(col *mongo.Collection) *OrderRepository {
	return &OrderRepository{col: col}
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	var o models.Order
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	return o, err
}

// Create inserts a new order and fills in its generated ID.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	res, err := r.col.InsertOne(ctx, o)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = oid
	}
	return nil
}

// Update applies the given field set to an order document.
func (r *OrderRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// ListByCustomer returns a customer's orders, newest first, optionally
// narrowed to one status, plus the total match count.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID primitive.ObjectID, status models.Status, p paginate.Params) ([]models.Order, int64, error) {
	q := bson.M{"customerId": customerID}
	if status != "" {
		q["status"] = status
	}
	return r.list(ctx, q, p)
}

// ListByFarmer returns a farmer's incoming orders, newest first.
func (r *OrderRepository) ListByFarmer(ctx context.Context, farmerID primitive.ObjectID, status models.Status, p paginate.Params) ([]models.Order, int64, error) {
	q := bson.M{"farmerId": farmerID}
	if status != "" {
		q["status"] = status
	}
	return r.list(ctx, q, p)
}

func (r *OrderRepository) list(ctx context.Context, q bson.M, p paginate.Params) ([]models.Order, int64, error) {
	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))

	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
