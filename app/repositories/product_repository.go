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

// ProductFilter narrows a catalogue listing. Zero values mean "no filter".
type ProductFilter struct {
	FarmerID  primitive.ObjectID
	Category  models.Category
	MinPrice  *float64
	MaxPrice  *float64
	Organic   *bool
	Available *bool
	Search    string // full-text against the name/description/category index

	SortBy   string // field name, default createdAt
	SortDesc bool
}

// query renders the filter as a Mongo filter document.
func (f ProductFilter) query() bson.M {
	q := bson.M{}
	if !f.FarmerID.IsZero() {
		q["farmerId"] = f.FarmerID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		q["price"] = price
	}
	if f.Organic != nil {
		q["isOrganic"] = *f.Organic
	}
	if f.Available != nil {
		q["isAvailable"] = *f.Available
	}
	if f.Search != "" {
		q["$text"] = bson.M{"$search": f.Search}
	}
	return q
}

func (f ProductFilter) sort() bson.D {
	field := f.SortBy
	if field == "" {
		field = "createdAt"
	}
	dir := 1
	if f.SortDesc {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}}
}

// ProductRepository handles database operations for product listings.
type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(col *mongo.Collection) *ProductRepository {
	return &ProductRepository{col: col}
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var p models.Product
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, err
}

// Create inserts a new product and fills in its generated ID.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

// Update applies the given field set to a product document.
func (r *ProductRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// Delete removes a product permanently.
func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// List returns a filtered, sorted page of products plus the total match count.
func (r *ProductRepository) List(ctx context.Context, f ProductFilter, p paginate.Params) ([]models.Product, int64, error) {
	q := f.query()

	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(f.sort()).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))

	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// DecrementQuantity atomically takes n units off a product's stock, but
// only when at least n units remain. Returns false when the guard fails,
// leaving the document untouched.
func (r *ProductRepository) DecrementQuantity(ctx context.Context, id primitive.ObjectID, n int) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "quantity": bson.M{"$gte": n}},
		bson.M{"$inc": bson.M{"quantity": -n}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// IncrementQuantity gives n units back. Used to unwind a partially
// committed order.
func (r *ProductRepository) IncrementQuantity(ctx context.Context, id primitive.ObjectID, n int) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"quantity": n}},
	)
	return err
}

// ApplyRating folds a new review rating into the product's running
// average and bumps the review count. The pipeline recomputes both from
// the document's own fields, so concurrent reviews cannot clobber each
// other the way a read-then-set would.
func (r *ProductRepository) ApplyRating(ctx context.Context, id primitive.ObjectID, rating int) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"rating": bson.M{"$divide": bson.A{
				bson.M{"$add": bson.A{
					bson.M{"$multiply": bson.A{"$rating", "$reviewCount"}},
					rating,
				}},
				bson.M{"$add": bson.A{"$reviewCount", 1}},
			}},
			"reviewCount": bson.M{"$add": bson.A{"$reviewCount", 1}},
		}}},
	})
	return err
}
