package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmlink/app/models"
	"farmlink/app/repositories"
	"farmlink/app/services"
	"farmlink/pkg/bind"
	"farmlink/pkg/paginate"
	"farmlink/pkg/response"
)

const defaultProductPageSize = services.DefaultListingPageSize

// ProductController handles the catalogue routes.
type ProductController struct {
	service *services.ProductService
}

func NewProductController(service *services.ProductService) *ProductController {
	return &ProductController{service: service}
}

// Index handles GET /api/products.
func (c *ProductController) Index(w http.ResponseWriter, r *http.Request) {
	filter, errs := listingFilter(r)
	if errs != nil {
		response.ValidationFailed(w, errs)
		return
	}
	p := paginate.FromRequest(r, defaultProductPageSize)

	products, meta, err := c.service.List(r.Context(), filter, p)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, response.M{"products": products, "pagination": meta})
}

// Show handles GET /api/products/{id}.
func (c *ProductController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	product, err := c.service.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, response.M{"product": product})
}

// ByFarmer handles GET /api/products/farmer/{farmerID}.
func (c *ProductController) ByFarmer(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := pathID(w, r, "farmerID")
	if !ok {
		return
	}
	p := paginate.FromRequest(r, defaultProductPageSize)

	products, meta, err := c.service.FarmerProducts(r.Context(), farmerID, p)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, response.M{"products": products, "pagination": meta})
}

// Create handles POST /api/products.
func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var in services.CreateProductInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationFailed(w, errs)
		return
	}

	product, err := c.service.Create(r.Context(), farmerID, in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, "Product created", response.M{"product": product})
}

// Update handles PUT /api/products/{id}.
func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in services.UpdateProductInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationFailed(w, errs)
		return
	}

	product, err := c.service.Update(r.Context(), farmerID, id, in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OKMessage(w, "Product updated", response.M{"product": product})
}

// Delete handles DELETE /api/products/{id}.
func (c *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := c.service.Delete(r.Context(), farmerID, id); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OKMessage(w, "Product deleted", nil)
}

// UploadImage handles POST /api/products/{id}/image (multipart form,
// field "image").
func (c *ProductController) UploadImage(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "The image file is required")
		return
	}
	defer file.Close()

	url, err := c.service.UploadImage(r.Context(), farmerID, id, header.Filename, file)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, "Image uploaded", response.M{"url": url})
}

// listingFilter parses the catalogue query parameters.
func listingFilter(r *http.Request) (repositories.ProductFilter, map[string]string) {
	q := r.URL.Query()
	var f repositories.ProductFilter

	if v := q.Get("category"); v != "" {
		cat := models.Category(v)
		if !cat.IsValid() {
			return f, map[string]string{"category": "unknown category"}
		}
		f.Category = cat
	}
	if v := q.Get("minPrice"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			return f, map[string]string{"minPrice": "must be a non-negative number"}
		}
		f.MinPrice = &n
	}
	if v := q.Get("maxPrice"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			return f, map[string]string{"maxPrice": "must be a non-negative number"}
		}
		f.MaxPrice = &n
	}
	if v := q.Get("organic"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, map[string]string{"organic": "must be true or false"}
		}
		f.Organic = &b
	}
	if v := q.Get("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, map[string]string{"available": "must be true or false"}
		}
		f.Available = &b
	}
	f.Search = q.Get("search")

	switch sort := q.Get("sortBy"); sort {
	case "", "createdAt", "price", "rating", "name":
		f.SortBy = sort
	default:
		return f, map[string]string{"sortBy": "must be one of createdAt, price, rating, name"}
	}
	f.SortDesc = q.Get("order") != "asc"

	return f, nil
}

// pathID parses an ObjectID path parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}
