package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/app/models"
	"farmlink/pkg/apperr"
	"farmlink/pkg/paginate"
)

// ─── In-memory fakes ──────────────────────────────────────────────────────────

type fakeOrderStore struct {
	orders map[primitive.ObjectID]models.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[primitive.ObjectID]models.Order{}}
}

func (f *fakeOrderStore) FindByID(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return models.Order{}, mongo.ErrNoDocuments
	}
	return o, nil
}

func (f *fakeOrderStore) Create(_ context.Context, o *models.Order) error {
	o.ID = primitive.NewObjectID()
	f.orders[o.ID] = *o
	return nil
}

func (f *fakeOrderStore) Update(_ context.Context, id primitive.ObjectID, set bson.M) error {
	o := f.orders[id]
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
	f.orders[id] = o
	return nil
}

func (f *fakeOrderStore) ListByCustomer(_ context.Context, customerID primitive.ObjectID, status models.Status, _ paginate.Params) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderStore) ListByFarmer(_ context.Context, farmerID primitive.ObjectID, status models.Status, _ paginate.Params) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.FarmerID == farmerID && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

type fakeProductStore struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]models.Product

	// stealOnDecrement drains the product's stock just before the guard
	// runs, simulating a concurrent order winning the race.
	stealOnDecrement map[primitive.ObjectID]bool
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{
		products:         map[primitive.ObjectID]models.Product{},
		stealOnDecrement: map[primitive.ObjectID]bool{},
	}
}

func (f *fakeProductStore) FindByID(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return models.Product{}, mongo.ErrNoDocuments
	}
	return p, nil
}

func (f *fakeProductStore) DecrementQuantity(_ context.Context, id primitive.ObjectID, n int) (bool, error) {
	p := f.products[id]
	if f.stealOnDecrement[id] {
		p.Quantity = 0
		f.products[id] = p
	}
	if p.Quantity < n {
		return false, nil
	}
	p.Quantity -= n
	f.products[id] = p
	return true, nil
}

func (f *fakeProductStore) IncrementQuantity(_ context.Context, id primitive.ObjectID, n int) error {
	p := f.products[id]
	p.Quantity += n
	f.products[id] = p
	return nil
}

func (f *fakeProductStore) ApplyRating(_ context.Context, id primitive.ObjectID, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	newCount := p.ReviewCount + 1
	p.Rating = (p.Rating*float64(p.ReviewCount) + float64(rating)) / float64(newCount)
	p.ReviewCount = newCount
	f.products[id] = p
	return nil
}

// ─── Fixtures ─────────────────────────────────────────────────────────────────

type orderFixture struct {
	svc        *OrderService
	orders     *fakeOrderStore
	products   *fakeProductStore
	farmerID   primitive.ObjectID
	customerID primitive.ObjectID
	tomatoes   models.Product
	eggs       models.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	orders := newFakeOrderStore()
	products := newFakeProductStore()
	farmerID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()

	tomatoes := models.Product{
		ID: primitive.NewObjectID(), FarmerID: farmerID,
		Name: "Organic Tomatoes", Category: models.CategoryVegetables,
		Price: 2.99, Unit: models.UnitKg, Quantity: 50, IsAvailable: true,
	}
	eggs := models.Product{
		ID: primitive.NewObjectID(), FarmerID: farmerID,
		Name: "Free-Range Eggs", Category: models.CategoryPoultry,
		Price: 5.50, Unit: models.UnitDozen, Quantity: 20, IsAvailable: true,
	}
	products.products[tomatoes.ID] = tomatoes
	products.products[eggs.ID] = eggs

	return &orderFixture{
		svc:        NewOrderService(orders, products, nil),
		orders:     orders,
		products:   products,
		farmerID:   farmerID,
		customerID: customerID,
		tomatoes:   tomatoes,
		eggs:       eggs,
	}
}

func (fx *orderFixture) placeInput(items ...OrderItemInput) PlaceOrderInput {
	return PlaceOrderInput{
		FarmerID:        fx.farmerID.Hex(),
		Items:           items,
		DeliveryAddress: models.Address{Street: "1 Main St", City: "Springfield", ZipCode: "12345"},
	}
}

func (fx *orderFixture) placedOrder(t *testing.T) models.Order {
	t.Helper()
	order, err := fx.svc.PlaceOrder(context.Background(), fx.customerID,
		fx.placeInput(OrderItemInput{ProductID: fx.tomatoes.ID.Hex(), Quantity: 2}))
	require.NoError(t, err)
	return order
}

// deliver walks the order through the full forward path.
func (fx *orderFixture) deliver(t *testing.T, orderID primitive.ObjectID) models.Order {
	t.Helper()
	var order models.Order
	var err error
	for _, s := range []models.Status{
		models.StatusConfirmed, models.StatusPreparing, models.StatusReady,
		models.StatusOutForDelivery, models.StatusDelivered,
	} {
		order, err = fx.svc.UpdateStatus(context.Background(), fx.farmerID, orderID, UpdateStatusInput{Status: string(s)})
		require.NoError(t, err)
	}
	return order
}

// ─── Placement ────────────────────────────────────────────────────────────────

func TestPlaceOrder_PricesSnapshotAndDecrementsStock(t *testing.T) {
	fx := newOrderFixture(t)

	order, err := fx.svc.PlaceOrder(context.Background(), fx.customerID,
		fx.placeInput(
			OrderItemInput{ProductID: fx.tomatoes.ID.Hex(), Quantity: 2},
			OrderItemInput{ProductID: fx.eggs.ID.Hex(), Quantity: 1},
		))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, fx.customerID, order.CustomerID)
	assert.Equal(t, fx.farmerID, order.FarmerID)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "Organic Tomatoes", order.Items[0].ProductName)
	assert.Equal(t, 2.99, order.Items[0].UnitPrice)
	assert.Equal(t, 5.98, order.Items[0].TotalPrice)
	assert.Equal(t, models.UnitKg, order.Items[0].Unit)
	assert.Equal(t, 11.48, order.Subtotal)
	assert.Equal(t, order.Subtotal, order.TotalAmount)

	assert.Equal(t, 48, fx.products.products[fx.tomatoes.ID].Quantity)
	assert.Equal(t, 19, fx.products.products[fx.eggs.ID].Quantity)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	fx := newOrderFixture(t)

	_, err := fx.svc.PlaceOrder(context.Background(), fx.customerID,
		fx.placeInput(OrderItemInput{ProductID: primitive.NewObjectID().Hex(), Quantity: 1}))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPlaceOrder_UnavailableProduct(t *testing.T) {
	fx := newOrderFixture(t)
	p := fx.products.products[fx.tomatoes.ID]
	p.IsAvailable = false
	fx.products.products[fx.tomatoes.ID] = p

	_, err := fx.svc.PlaceOrder(context.Background(), fx.customerID,
		fx.placeInput(OrderItemInput{ProductID: fx.tomatoes.ID.Hex(), Quantity: 1}))
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestPlaceOrder_ForeignProductRejected(t *testing.T) {
	fx := newOrderFixture(t)
	other := models.Product{
		ID: primitive.NewObjectID(), FarmerID: primitive.NewObjectID(),
		Name: "Honey", Price: 8, Unit: models.UnitPiece, Quantity: 5, IsAvailable: true,
	}
	fx.products.products[other.ID] = other

	_, err := fx.svc.PlaceOrder(context.Background(), fx.customerID,
		fx.placeInput(
			OrderItemInput{ProductID: fx.tomatoes.ID.Hex(), Quantity: 1},
			OrderItemInput{ProductID: other.ID.Hex(), Quantity: 1},
		))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	// Validation happened before commit, so nothing was decremented.
	assert.Equal(t, 50, fx.products.products[fx.tomatoes.ID].Quantity)
}

func TestPlaceOrder_InsufficientStockLeavesInventoryUntouched(t *testing.T) {
	fx := newOrderFixture(t)

	_, err := fx.svc.PlaceOrder(context.Background(), fx.customerID,
		fx.placeInput(OrderItemInput{ProductID: fx.tomatoes.ID.Hex(), Quantity: 51}))
	assert.Equal(t, apperr.KindInsufficientInventory, apperr.KindOf(err))
	assert.Equal(t, 50, fx.products.products[fx.tomatoes.ID].Quantity)
}

func TestPlaceOrder_ConcurrentOverdrawCompensates(t *testing.T) {
	fx := newOrderFixture(t)
	// Tomatoes decrement succeeds, then the eggs decrement loses the race.
	fx.products.stealOnDecrement[fx.eggs.ID] = true

	_, err := fx.svc.PlaceOrder(context.Background(), fx.customerID,
		fx.placeInput(
			OrderItemInput{ProductID: fx.tomatoes.ID.Hex(), Quantity: 2},
			OrderItemInput{ProductID: fx.eggs.ID.Hex(), Quantity: 1},
		))
	assert.Equal(t, apperr.KindInsufficientInventory, apperr.KindOf(err))

	// The tomatoes decrement was rolled back; no order was created.
	assert.Equal(t, 50, fx.products.products[fx.tomatoes.ID].Quantity)
	assert.Empty(t, fx.orders.orders)
}

func TestPlaceOrder_NoItems(t *testing.T) {
	fx := newOrderFixture(t)

	_, err := fx.svc.PlaceOrder(context.Background(), fx.customerID, fx.placeInput())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPlaceOrder_MissingDeliveryAddress(t *testing.T) {
	fx := newOrderFixture(t)

	in := fx.placeInput(OrderItemInput{ProductID: fx.tomatoes.ID.Hex(), Quantity: 1})
	in.DeliveryAddress = models.Address{}
	_, err := fx.svc.PlaceOrder(context.Background(), fx.customerID, in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// ─── Status transitions ───────────────────────────────────────────────────────

func TestUpdateStatus_ForwardPathStampsDelivery(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)

	delivered := fx.deliver(t, order.ID)
	assert.Equal(t, models.StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.ActualDelivery)
	assert.WithinDuration(t, time.Now().UTC(), *delivered.ActualDelivery, 5*time.Second)
}

func TestUpdateStatus_SkippingStepsRejected(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)

	_, err := fx.svc.UpdateStatus(context.Background(), fx.farmerID, order.ID,
		UpdateStatusInput{Status: string(models.StatusDelivered)})
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestUpdateStatus_CustomerForbidden(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)

	_, err := fx.svc.UpdateStatus(context.Background(), fx.customerID, order.ID,
		UpdateStatusInput{Status: string(models.StatusConfirmed)})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUpdateStatus_CancelNonTerminal(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)

	cancelled, err := fx.svc.UpdateStatus(context.Background(), fx.farmerID, order.ID,
		UpdateStatusInput{Status: string(models.StatusCancelled), FarmerNotes: "out of stock this week"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "out of stock this week", cancelled.FarmerNotes)

	// Terminal: nothing moves a cancelled order.
	_, err = fx.svc.UpdateStatus(context.Background(), fx.farmerID, order.ID,
		UpdateStatusInput{Status: string(models.StatusConfirmed)})
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)

	_, err := fx.svc.UpdateStatus(context.Background(), fx.farmerID, order.ID,
		UpdateStatusInput{Status: "shipped"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// ─── Reviews ──────────────────────────────────────────────────────────────────

func TestSubmitReview_DeliveredOnceUpdatesProductRating(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)
	fx.deliver(t, order.ID)

	reviewed, err := fx.svc.SubmitReview(context.Background(), fx.customerID, order.ID,
		ReviewInput{Rating: 4, Review: "Fresh and tasty"})
	require.NoError(t, err)
	assert.Equal(t, 4, reviewed.Rating)
	assert.Equal(t, "Fresh and tasty", reviewed.Review)

	p := fx.products.products[fx.tomatoes.ID]
	assert.Equal(t, 1, p.ReviewCount)
	assert.InDelta(t, 4.0, p.Rating, 1e-9)
}

func TestSubmitReview_IncrementalAverage(t *testing.T) {
	fx := newOrderFixture(t)

	first := fx.placedOrder(t)
	fx.deliver(t, first.ID)
	_, err := fx.svc.SubmitReview(context.Background(), fx.customerID, first.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)

	second := fx.placedOrder(t)
	fx.deliver(t, second.ID)
	_, err = fx.svc.SubmitReview(context.Background(), fx.customerID, second.ID, ReviewInput{Rating: 2})
	require.NoError(t, err)

	p := fx.products.products[fx.tomatoes.ID]
	assert.Equal(t, 2, p.ReviewCount)
	assert.InDelta(t, 3.5, p.Rating, 1e-9)
}

func TestSubmitReview_LengthCountsRunesNotBytes(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)
	fx.deliver(t, order.ID)

	// 400 runes, 800 bytes. Must pass the 500-character limit.
	reviewed, err := fx.svc.SubmitReview(context.Background(), fx.customerID, order.ID,
		ReviewInput{Rating: 4, Review: strings.Repeat("å", 400)})
	require.NoError(t, err)
	assert.Equal(t, 4, reviewed.Rating)

	second := fx.placedOrder(t)
	fx.deliver(t, second.ID)
	_, err = fx.svc.SubmitReview(context.Background(), fx.customerID, second.ID,
		ReviewInput{Rating: 4, Review: strings.Repeat("å", 501)})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSubmitReview_NotDelivered(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)

	_, err := fx.svc.SubmitReview(context.Background(), fx.customerID, order.ID, ReviewInput{Rating: 5})
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestSubmitReview_Twice(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)
	fx.deliver(t, order.ID)

	_, err := fx.svc.SubmitReview(context.Background(), fx.customerID, order.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)

	_, err = fx.svc.SubmitReview(context.Background(), fx.customerID, order.ID, ReviewInput{Rating: 1})
	assert.Equal(t, apperr.KindAlreadyExists, apperr.KindOf(err))
}

func TestSubmitReview_FarmerForbidden(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)
	fx.deliver(t, order.ID)

	_, err := fx.svc.SubmitReview(context.Background(), fx.farmerID, order.ID, ReviewInput{Rating: 5})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestSubmitReview_RatingOutOfRange(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)
	fx.deliver(t, order.ID)

	for _, rating := range []int{0, 6, -1} {
		_, err := fx.svc.SubmitReview(context.Background(), fx.customerID, order.ID, ReviewInput{Rating: rating})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "rating %d", rating)
	}
}

// ─── Retrieval ────────────────────────────────────────────────────────────────

func TestGetOrder_ParticipantsOnly(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.placedOrder(t)

	_, err := fx.svc.GetOrder(context.Background(), fx.customerID, order.ID)
	assert.NoError(t, err)
	_, err = fx.svc.GetOrder(context.Background(), fx.farmerID, order.ID)
	assert.NoError(t, err)

	_, err = fx.svc.GetOrder(context.Background(), primitive.NewObjectID(), order.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestGetOrder_NotFound(t *testing.T) {
	fx := newOrderFixture(t)

	_, err := fx.svc.GetOrder(context.Background(), fx.customerID, primitive.NewObjectID())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListOrders_FilterByStatus(t *testing.T) {
	fx := newOrderFixture(t)
	first := fx.placedOrder(t)
	fx.placedOrder(t)
	_, err := fx.svc.UpdateStatus(context.Background(), fx.farmerID, first.ID,
		UpdateStatusInput{Status: string(models.StatusConfirmed)})
	require.NoError(t, err)

	p := paginate.Params{Page: 1, Limit: 10}

	pending, _, err := fx.svc.ListCustomerOrders(context.Background(), fx.customerID, models.StatusPending, p)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, meta, err := fx.svc.ListFarmerOrders(context.Background(), fx.farmerID, "", p)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 1, meta.TotalPages)

	_, _, err = fx.svc.ListFarmerOrders(context.Background(), fx.farmerID, models.Status("bogus"), p)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
