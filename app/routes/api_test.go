package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/app/controllers"
	"farmlink/app/models"
	"farmlink/app/repositories"
	"farmlink/app/services"
	"farmlink/pkg/auth"
	"farmlink/pkg/paginate"
	"farmlink/pkg/router"
)

// ─── In-memory stores backing the full HTTP stack ─────────────────────────────

type memUsers struct {
	byID map[primitive.ObjectID]models.User
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, mongo.ErrNoDocuments
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	m.byID[user.ID] = *user
	return nil
}

func (m *memUsers) Update(_ context.Context, id primitive.ObjectID, set bson.M) error {
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id primitive.ObjectID) error {
	u := m.byID[id]
	now := time.Now().UTC()
	u.LastLogin = &now
	m.byID[id] = u
	return nil
}

type memProducts struct {
	byID map[primitive.ObjectID]models.Product
}

func (m *memProducts) FindByID(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return models.Product{}, mongo.ErrNoDocuments
	}
	return p, nil
}

func (m *memProducts) Create(_ context.Context, p *models.Product) error {
	p.ID = primitive.NewObjectID()
	m.byID[p.ID] = *p
	return nil
}

func (m *memProducts) Update(_ context.Context, id primitive.ObjectID, set bson.M) error {
	p := m.byID[id]
	for k, v := range set {
		switch k {
		case "price":
			p.Price = v.(float64)
		case "quantity":
			p.Quantity = v.(int)
		case "isAvailable":
			p.IsAvailable = v.(bool)
		case "images":
			p.Images = v.([]string)
		}
	}
	m.byID[id] = p
	return nil
}

func (m *memProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(m.byID, id)
	return nil
}

func (m *memProducts) List(_ context.Context, f repositories.ProductFilter, _ paginate.Params) ([]models.Product, int64, error) {
	out := []models.Product{}
	for _, p := range m.byID {
		if !f.FarmerID.IsZero() && p.FarmerID != f.FarmerID {
			continue
		}
		if f.Available != nil && p.IsAvailable != *f.Available {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (m *memProducts) DecrementQuantity(_ context.Context, id primitive.ObjectID, n int) (bool, error) {
	p := m.byID[id]
	if p.Quantity < n {
		return false, nil
	}
	p.Quantity -= n
	m.byID[id] = p
	return true, nil
}

func (m *memProducts) IncrementQuantity(_ context.Context, id primitive.ObjectID, n int) error {
	p := m.byID[id]
	p.Quantity += n
	m.byID[id] = p
	return nil
}

func (m *memProducts) ApplyRating(_ context.Context, id primitive.ObjectID, rating int) error {
	p := m.byID[id]
	newCount := p.ReviewCount + 1
	p.Rating = (p.Rating*float64(p.ReviewCount) + float64(rating)) / float64(newCount)
	p.ReviewCount = newCount
	m.byID[id] = p
	return nil
}

type memOrders struct {
	byID map[primitive.ObjectID]models.Order
}

func (m *memOrders) FindByID(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return models.Order{}, mongo.ErrNoDocuments
	}
	return o, nil
}

func (m *memOrders) Create(_ context.Context, o *models.Order) error {
	o.ID = primitive.NewObjectID()
	m.byID[o.ID] = *o
	return nil
}

func (m *memOrders) Update(_ context.Context, id primitive.ObjectID, set bson.M) error {
	o := m.byID[id]
	for k, v := range set {
		switch k {
		case "status":
			o.Status = v.(models.Status)
		case "farmerNotes":
			o.FarmerNotes = v.(string)
		case "actualDelivery":
			t := v.(time.Time)
			o.ActualDelivery = &t
		case "rating":
			o.Rating = v.(int)
		case "review":
			o.Review = v.(string)
		case "updatedAt":
			o.UpdatedAt = v.(time.Time)
		}
	}
	m.byID[id] = o
	return nil
}

func (m *memOrders) ListByCustomer(_ context.Context, customerID primitive.ObjectID, status models.Status, _ paginate.Params) ([]models.Order, int64, error) {
	out := []models.Order{}
	for _, o := range m.byID {
		if o.CustomerID == customerID && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memOrders) ListByFarmer(_ context.Context, farmerID primitive.ObjectID, status models.Status, _ paginate.Params) ([]models.Order, int64, error) {
	out := []models.Order{}
	for _, o := range m.byID {
		if o.FarmerID == farmerID && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

// ─── Harness ──────────────────────────────────────────────────────────────────

type apiHarness struct {
	srv      *httptest.Server
	products *memProducts

	farmerID      primitive.ObjectID
	farmerToken   string
	customerID    primitive.ObjectID
	customerToken string
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	users := &memUsers{byID: map[primitive.ObjectID]models.User{}}
	products := &memProducts{byID: map[primitive.ObjectID]models.Product{}}
	orders := &memOrders{byID: map[primitive.ObjectID]models.Order{}}

	farmer := models.User{
		ID: primitive.NewObjectID(), Name: "John Farmer",
		Email: "john@farm.com", Role: models.RoleFarmer,
		Farmer: &models.FarmerProfile{FarmName: "Green Valley Farm"},
	}
	customer := models.User{
		ID: primitive.NewObjectID(), Name: "Mike Customer",
		Email: "mike@email.com", Role: models.RoleCustomer,
		Customer: &models.CustomerProfile{},
	}
	users.byID[farmer.ID] = farmer
	users.byID[customer.ID] = customer

	productSvc := services.NewProductService(products)
	schema, err := controllers.NewCatalogueSchema(productSvc)
	require.NoError(t, err)

	r := router.New()
	RegisterAPI(r, Controllers{
		Auth:            controllers.NewAuthController(services.NewAuthService(users)),
		Products:        controllers.NewProductController(productSvc),
		Orders:          controllers.NewOrderController(services.NewOrderService(orders, products, nil)),
		CatalogueSchema: schema,
	})

	farmerToken, err := auth.GenerateToken(farmer.ID.Hex(), farmer.Role)
	require.NoError(t, err)
	customerToken, err := auth.GenerateToken(customer.ID.Hex(), customer.Role)
	require.NoError(t, err)

	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)

	return &apiHarness{
		srv:           srv,
		products:      products,
		farmerID:      farmer.ID,
		farmerToken:   farmerToken,
		customerID:    customer.ID,
		customerToken: customerToken,
	}
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (h *apiHarness) seedProduct(t *testing.T, quantity int) primitive.ObjectID {
	t.Helper()
	p := models.Product{
		ID: primitive.NewObjectID(), FarmerID: h.farmerID,
		Name: "Fresh Organic Tomatoes", Category: models.CategoryVegetables,
		Price: 2.99, Unit: models.UnitKg, Quantity: quantity,
		IsOrganic: true, IsAvailable: true,
	}
	h.products.byID[p.ID] = p
	return p.ID
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestAPI_Health(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}

func TestAPI_RegisterValidation(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name": "X", "email": "not-an-email", "password": "123", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["errors"])
}

func TestAPI_RegisterAndLogin(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name": "Sarah Farmer", "email": "sarah@farm.com", "password": "password123",
		"role": "farmer", "farmName": "Fresh Meadows Farm",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	resp, _ = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"email": "sarah@farm.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"email": "sarah@farm.com", "password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestAPI_ProductCreateRequiresFarmerRole(t *testing.T) {
	h := newAPIHarness(t)
	in := map[string]interface{}{
		"name": "Honey", "category": "other", "price": 8.99, "unit": "kg", "quantity": 20,
	}

	resp, _ := h.do(t, http.MethodPost, "/api/products", "", in)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/products", h.customerToken, in)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/products", h.farmerToken, in)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPI_OrderLifecycle(t *testing.T) {
	h := newAPIHarness(t)
	productID := h.seedProduct(t, 50)

	place := map[string]interface{}{
		"farmerId": h.farmerID.Hex(),
		"items": []map[string]interface{}{
			{"productId": productID.Hex(), "quantity": 2},
		},
		"deliveryAddress": map[string]string{"street": "789 City Street", "city": "Urban Center"},
	}

	// Farmers cannot place orders.
	resp, _ := h.do(t, http.MethodPost, "/api/orders", h.farmerToken, place)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := h.do(t, http.MethodPost, "/api/orders", h.customerToken, place)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "pending", order["status"])
	assert.InDelta(t, 5.98, order["subtotal"].(float64), 1e-9)
	orderID := order["id"].(string)

	assert.Equal(t, 48, h.products.byID[productID].Quantity)

	// Customers cannot drive the state machine.
	resp, _ = h.do(t, http.MethodPut, "/api/orders/"+orderID+"/status", h.customerToken,
		map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Skipping steps is rejected.
	resp, _ = h.do(t, http.MethodPut, "/api/orders/"+orderID+"/status", h.farmerToken,
		map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Reviews require delivery first.
	resp, _ = h.do(t, http.MethodPost, "/api/orders/"+orderID+"/review", h.customerToken,
		map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, status := range []string{"confirmed", "preparing", "ready", "out_for_delivery", "delivered"} {
		resp, body = h.do(t, http.MethodPut, "/api/orders/"+orderID+"/status", h.farmerToken,
			map[string]string{"status": status})
		require.Equal(t, http.StatusOK, resp.StatusCode, status)
	}
	order = body["order"].(map[string]interface{})
	assert.NotEmpty(t, order["actualDelivery"])

	resp, _ = h.do(t, http.MethodPost, "/api/orders/"+orderID+"/review", h.customerToken,
		map[string]interface{}{"rating": 4, "review": "Great produce"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Once only.
	resp, _ = h.do(t, http.MethodPost, "/api/orders/"+orderID+"/review", h.customerToken,
		map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The rating reached the product aggregates.
	assert.Equal(t, 1, h.products.byID[productID].ReviewCount)
	assert.InDelta(t, 4.0, h.products.byID[productID].Rating, 1e-9)

	// Both participants can read the order, outsiders cannot.
	resp, _ = h.do(t, http.MethodGet, "/api/orders/"+orderID, h.farmerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	outsider, err := auth.GenerateToken(primitive.NewObjectID().Hex(), models.RoleCustomer)
	require.NoError(t, err)
	resp, _ = h.do(t, http.MethodGet, "/api/orders/"+orderID, outsider, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_OrderInsufficientStock(t *testing.T) {
	h := newAPIHarness(t)
	productID := h.seedProduct(t, 3)

	resp, _ := h.do(t, http.MethodPost, "/api/orders", h.customerToken, map[string]interface{}{
		"farmerId": h.farmerID.Hex(),
		"items": []map[string]interface{}{
			{"productId": productID.Hex(), "quantity": 10},
		},
		"deliveryAddress": map[string]string{"street": "789 City Street", "city": "Urban Center"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 3, h.products.byID[productID].Quantity)
}

func TestAPI_GraphQLCatalogue(t *testing.T) {
	h := newAPIHarness(t)
	h.seedProduct(t, 50)

	resp, body := h.do(t, http.MethodPost, "/api/graphql", "", map[string]string{
		"query": `{ products { name price unit } }`,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, fmt.Sprintf("unexpected body: %v", body))
	listing := data["products"].([]interface{})
	require.Len(t, listing, 1)
	first := listing[0].(map[string]interface{})
	assert.Equal(t, "Fresh Organic Tomatoes", first["name"])
	assert.InDelta(t, 2.99, first["price"].(float64), 1e-9)
}
