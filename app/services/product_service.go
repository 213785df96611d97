package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/app/models"
	"farmlink/app/repositories"
	"farmlink/pkg/apperr"
	"farmlink/pkg/cache"
	"farmlink/pkg/paginate"
	"farmlink/pkg/storage"
)

// DefaultListingPageSize is the catalogue page size when the request
// does not name one.
const DefaultListingPageSize = 12

// listingCacheKey holds the default first page of the public catalogue.
const (
	listingCacheKey = "products:listing:first"
	listingCacheTTL = 60 * time.Second
)

// ProductStore is the persistence surface ProductService needs.
type ProductStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f repositories.ProductFilter, p paginate.Params) ([]models.Product, int64, error)
}

// ProductService implements the farmer catalogue: CRUD with ownership
// checks, the public listing, and image upload.
type ProductService struct {
	products ProductStore
}

func NewProductService(products ProductStore) *ProductService {
	return &ProductService{products: products}
}

// CreateProductInput is the payload for Create.
type CreateProductInput struct {
	Name        string           `json:"name" validate:"required,min=2,max=150"`
	Description string           `json:"description" validate:"nullable,max=2000"`
	Category    string           `json:"category" validate:"required"`
	Price       *float64         `json:"price" validate:"required,gte=0"`
	Unit        string           `json:"unit" validate:"required"`
	Quantity    int              `json:"quantity" validate:"gte=0"`
	IsOrganic   bool             `json:"isOrganic"`
	IsAvailable *bool            `json:"isAvailable"`
	HarvestDate *time.Time       `json:"harvestDate"`
	ExpiryDate  *time.Time       `json:"expiryDate"`
	Location    *models.GeoPoint `json:"location"`
	Tags        []string         `json:"tags"`
}

// Create adds a listing owned by farmerID.
func (s *ProductService) Create(ctx context.Context, farmerID primitive.ObjectID, in CreateProductInput) (models.Product, error) {
	if errs := validateEnums(in.Category, in.Unit); errs != nil {
		return models.Product{}, apperr.Validation(errs)
	}
	// Price zero is a valid listing (giveaways); only a missing price is
	// rejected.
	if in.Price == nil || *in.Price < 0 {
		return models.Product{}, apperr.Validation(map[string]string{
			"price": "The price field must be a non-negative number.",
		})
	}

	now := time.Now().UTC()
	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}

	p := models.Product{
		FarmerID:    farmerID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    models.Category(in.Category),
		Price:       *in.Price,
		Unit:        models.Unit(in.Unit),
		Quantity:    in.Quantity,
		IsOrganic:   in.IsOrganic,
		IsAvailable: available,
		HarvestDate: in.HarvestDate,
		ExpiryDate:  in.ExpiryDate,
		Location:    in.Location,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, &p); err != nil {
		return models.Product{}, apperr.Internal("create product", err)
	}

	s.invalidateListing()
	return p, nil
}

// UpdateProductInput carries the editable product fields. Nil pointers
// leave the stored value untouched.
type UpdateProductInput struct {
	Name        *string          `json:"name" validate:"nullable,min=2,max=150"`
	Description *string          `json:"description" validate:"nullable,max=2000"`
	Category    *string          `json:"category"`
	Price       *float64         `json:"price" validate:"nullable,gte=0"`
	Unit        *string          `json:"unit"`
	Quantity    *int             `json:"quantity" validate:"nullable,gte=0"`
	IsOrganic   *bool            `json:"isOrganic"`
	IsAvailable *bool            `json:"isAvailable"`
	HarvestDate *time.Time       `json:"harvestDate"`
	ExpiryDate  *time.Time       `json:"expiryDate"`
	Location    *models.GeoPoint `json:"location"`
	Tags        []string         `json:"tags"`
}

// Update edits a listing. Only the owning farmer may edit it.
func (s *ProductService) Update(ctx context.Context, farmerID, productID primitive.ObjectID, in UpdateProductInput) (models.Product, error) {
	p, err := s.owned(ctx, farmerID, productID)
	if err != nil {
		return models.Product{}, err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if in.Name != nil {
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		set["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		if !models.Category(*in.Category).IsValid() {
			return models.Product{}, apperr.Validation(map[string]string{
				"category": fmt.Sprintf("The category field must be one of %v.", models.Categories),
			})
		}
		set["category"] = models.Category(*in.Category)
	}
	if in.Price != nil {
		set["price"] = *in.Price
	}
	if in.Unit != nil {
		if !models.Unit(*in.Unit).IsValid() {
			return models.Product{}, apperr.Validation(map[string]string{
				"unit": fmt.Sprintf("The unit field must be one of %v.", models.Units),
			})
		}
		set["unit"] = models.Unit(*in.Unit)
	}
	if in.Quantity != nil {
		set["quantity"] = *in.Quantity
	}
	if in.IsOrganic != nil {
		set["isOrganic"] = *in.IsOrganic
	}
	if in.IsAvailable != nil {
		set["isAvailable"] = *in.IsAvailable
	}
	if in.HarvestDate != nil {
		set["harvestDate"] = *in.HarvestDate
	}
	if in.ExpiryDate != nil {
		set["expiryDate"] = *in.ExpiryDate
	}
	if in.Location != nil {
		set["location"] = in.Location
	}
	if in.Tags != nil {
		set["tags"] = in.Tags
	}

	if err := s.products.Update(ctx, p.ID, set); err != nil {
		return models.Product{}, apperr.Internal("update product", err)
	}

	s.invalidateListing()
	return s.Get(ctx, p.ID)
}

// Delete removes a listing. Only the owning farmer may delete it.
func (s *ProductService) Delete(ctx context.Context, farmerID, productID primitive.ObjectID) error {
	p, err := s.owned(ctx, farmerID, productID)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, p.ID); err != nil {
		return apperr.Internal("delete product", err)
	}
	s.invalidateListing()
	return nil
}

// Get fetches a single listing.
func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, apperr.New(apperr.KindNotFound, "Product not found")
		}
		return models.Product{}, apperr.Internal("find product", err)
	}
	return p, nil
}

// listingPage is the cached shape of a catalogue page.
type listingPage struct {
	Products []models.Product `json:"products"`
	Meta     paginate.Meta    `json:"meta"`
}

// List returns a filtered page of the public catalogue. The first
// unfiltered page is served from the cache when warm.
func (s *ProductService) List(ctx context.Context, f repositories.ProductFilter, p paginate.Params) ([]models.Product, paginate.Meta, error) {
	cacheable := s.cacheable(f, p)
	if cacheable {
		var page listingPage
		if cache.Get(listingCacheKey, &page) {
			return page.Products, page.Meta, nil
		}
	}

	products, total, err := s.products.List(ctx, f, p)
	if err != nil {
		return nil, paginate.Meta{}, apperr.Internal("list products", err)
	}
	meta := paginate.NewMeta(p, len(products), total)

	if cacheable {
		_ = cache.Set(listingCacheKey, listingPage{Products: products, Meta: meta}, listingCacheTTL)
	}
	return products, meta, nil
}

// FarmerProducts returns a farmer's public listings, available ones only.
func (s *ProductService) FarmerProducts(ctx context.Context, farmerID primitive.ObjectID, p paginate.Params) ([]models.Product, paginate.Meta, error) {
	available := true
	f := repositories.ProductFilter{FarmerID: farmerID, Available: &available}

	products, total, err := s.products.List(ctx, f, p)
	if err != nil {
		return nil, paginate.Meta{}, apperr.Internal("list farmer products", err)
	}
	return products, paginate.NewMeta(p, len(products), total), nil
}

// UploadImage stores an image on the configured disk and appends its
// public URL to the product. Only the owning farmer may upload.
func (s *ProductService) UploadImage(ctx context.Context, farmerID, productID primitive.ObjectID, filename string, r io.Reader) (string, error) {
	p, err := s.owned(ctx, farmerID, productID)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return "", apperr.Validation(map[string]string{
			"image": "The image must be a jpg, jpeg, png, or webp file.",
		})
	}

	key := fmt.Sprintf("products/%s/%d%s", p.ID.Hex(), time.Now().UnixNano(), ext)
	if err := storage.PutStream(key, r); err != nil {
		return "", apperr.Internal("store image", err)
	}

	url := storage.URL(key)
	set := bson.M{
		"images":    append(p.Images, url),
		"updatedAt": time.Now().UTC(),
	}
	if err := s.products.Update(ctx, p.ID, set); err != nil {
		return "", apperr.Internal("attach image", err)
	}

	s.invalidateListing()
	return url, nil
}

// owned fetches a product and verifies farmerID owns it.
func (s *ProductService) owned(ctx context.Context, farmerID, productID primitive.ObjectID) (models.Product, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return models.Product{}, err
	}
	if p.FarmerID != farmerID {
		return models.Product{}, apperr.New(apperr.KindForbidden, "You do not own this product")
	}
	return p, nil
}

// cacheable reports whether this request is the plain first page: no
// filters, default sort (createdAt desc), default page size. Anything
// else must bypass the single cache slot or it would be served another
// request's page shape.
func (s *ProductService) cacheable(f repositories.ProductFilter, p paginate.Params) bool {
	unfiltered := f.FarmerID.IsZero() && f.Category == "" && f.MinPrice == nil &&
		f.MaxPrice == nil && f.Organic == nil && f.Available == nil &&
		f.Search == "" && f.SortBy == "" && f.SortDesc
	return unfiltered && p.Page == 1 && p.Limit == DefaultListingPageSize
}

func (s *ProductService) invalidateListing() {
	_ = cache.Del(listingCacheKey)
}

func validateEnums(category, unit string) map[string]string {
	errs := map[string]string{}
	if !models.Category(category).IsValid() {
		errs["category"] = fmt.Sprintf("The category field must be one of %v.", models.Categories)
	}
	if !models.Unit(unit).IsValid() {
		errs["unit"] = fmt.Sprintf("The unit field must be one of %v.", models.Units)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
