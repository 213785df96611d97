package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/app/models"
	"farmlink/pkg/apperr"
	"farmlink/pkg/logger"
	"farmlink/pkg/metrics"
	"farmlink/pkg/paginate"
	"farmlink/pkg/workerpool"
)

// OrderStore is the persistence surface OrderService needs for orders.
type OrderStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	Create(ctx context.Context, o *models.Order) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	ListByCustomer(ctx context.Context, customerID primitive.ObjectID, status models.Status, p paginate.Params) ([]models.Order, int64, error)
	ListByFarmer(ctx context.Context, farmerID primitive.ObjectID, status models.Status, p paginate.Params) ([]models.Order, int64, error)
}

// InventoryStore is the product-side surface OrderService needs.
type InventoryStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	DecrementQuantity(ctx context.Context, id primitive.ObjectID, n int) (bool, error)
	IncrementQuantity(ctx context.Context, id primitive.ObjectID, n int) error
	ApplyRating(ctx context.Context, id primitive.ObjectID, rating int) error
}

// OrderService implements order placement, the status state machine,
// reviews, and order retrieval.
type OrderService struct {
	orders   OrderStore
	products InventoryStore
	pool     *workerpool.Pool
}

// NewOrderService wires the service. pool may be nil, in which case
// rating aggregation runs synchronously.
func NewOrderService(orders OrderStore, products InventoryStore, pool *workerpool.Pool) *OrderService {
	return &OrderService{orders: orders, products: products, pool: pool}
}

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// PlaceOrderInput is the payload for PlaceOrder.
type PlaceOrderInput struct {
	FarmerID             string           `json:"farmerId" validate:"required"`
	Items                []OrderItemInput `json:"items"`
	DeliveryAddress      models.Address   `json:"deliveryAddress"`
	DeliveryInstructions string           `json:"deliveryInstructions" validate:"nullable,max=500"`
	CustomerNotes        string           `json:"customerNotes" validate:"nullable,max=500"`
}

// PlaceOrder creates an order for customerID against one farmer.
//
// Placement runs in two passes. Pass one only reads: every product must
// exist, be available, belong to the declared farmer, and have enough
// stock; line totals and the subtotal accumulate as it goes. Pass two
// commits: each line's stock is taken with a conditional decrement that
// fails when a concurrent order drained it first, and on any miss the
// lines already taken are given back so a rejected order never leaves a
// net inventory change.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID primitive.ObjectID, in PlaceOrderInput) (models.Order, error) {
	farmerID, err := primitive.ObjectIDFromHex(in.FarmerID)
	if err != nil {
		return models.Order{}, apperr.Validation(map[string]string{"farmerId": "The farmerId field must be a valid id."})
	}
	if len(in.Items) == 0 {
		return models.Order{}, apperr.Validation(map[string]string{"items": "The items field must contain at least one item."})
	}
	if in.DeliveryAddress == (models.Address{}) {
		return models.Order{}, apperr.Validation(map[string]string{"deliveryAddress": "The deliveryAddress field is required."})
	}

	// Pass one: validate and price every line without touching stock.
	items := make([]models.OrderItem, 0, len(in.Items))
	var subtotal float64
	for i, line := range in.Items {
		pid, err := primitive.ObjectIDFromHex(line.ProductID)
		if err != nil {
			return models.Order{}, apperr.Validation(map[string]string{
				fmt.Sprintf("items.%d.productId", i): "must be a valid id",
			})
		}
		if line.Quantity < 1 {
			return models.Order{}, apperr.Validation(map[string]string{
				fmt.Sprintf("items.%d.quantity", i): "must be at least 1",
			})
		}

		product, err := s.products.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				metrics.OrderRejections.WithLabelValues("not_found").Inc()
				return models.Order{}, apperr.Newf(apperr.KindNotFound, "Product %s not found", line.ProductID)
			}
			return models.Order{}, apperr.Internal("load product", err)
		}
		if !product.IsAvailable {
			metrics.OrderRejections.WithLabelValues("unavailable").Inc()
			return models.Order{}, apperr.Newf(apperr.KindInvalidState, "Product %q is not available", product.Name)
		}
		if product.FarmerID != farmerID {
			metrics.OrderRejections.WithLabelValues("ownership_mismatch").Inc()
			return models.Order{}, apperr.Validation(map[string]string{
				fmt.Sprintf("items.%d.productId", i): "does not belong to the specified farmer",
			})
		}
		if product.Quantity < line.Quantity {
			metrics.OrderRejections.WithLabelValues("insufficient_inventory").Inc()
			return models.Order{}, apperr.Newf(apperr.KindInsufficientInventory,
				"Insufficient stock for %q: %d requested, %d available",
				product.Name, line.Quantity, product.Quantity)
		}

		lineTotal := round2(product.Price * float64(line.Quantity))
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			TotalPrice:  lineTotal,
			Unit:        product.Unit,
		})
		subtotal = round2(subtotal + lineTotal)
	}

	// Pass two: take the stock. A conditional decrement can still miss if
	// a concurrent order got there first.
	taken := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		ok, err := s.products.DecrementQuantity(ctx, item.ProductID, item.Quantity)
		if err == nil && !ok {
			err = apperr.Newf(apperr.KindInsufficientInventory,
				"Insufficient stock for %q", item.ProductName)
			metrics.OrderRejections.WithLabelValues("insufficient_inventory").Inc()
		} else if err != nil {
			err = apperr.Internal("decrement stock", err)
		}
		if err != nil {
			s.compensate(ctx, taken)
			return models.Order{}, err
		}
		taken = append(taken, item)
	}

	now := time.Now().UTC()
	order := models.Order{
		CustomerID:           customerID,
		FarmerID:             farmerID,
		Items:                items,
		Subtotal:             subtotal,
		TotalAmount:          subtotal,
		DeliveryAddress:      in.DeliveryAddress,
		DeliveryInstructions: strings.TrimSpace(in.DeliveryInstructions),
		CustomerNotes:        strings.TrimSpace(in.CustomerNotes),
		Status:               models.StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		s.compensate(ctx, taken)
		return models.Order{}, apperr.Internal("create order", err)
	}

	metrics.OrdersPlaced.Inc()
	return order, nil
}

// compensate gives back stock taken before a failed commit.
func (s *OrderService) compensate(ctx context.Context, taken []models.OrderItem) {
	for _, item := range taken {
		if err := s.products.IncrementQuantity(ctx, item.ProductID, item.Quantity); err != nil {
			logger.WithCtx(ctx).Error("stock compensation failed",
				"productId", item.ProductID.Hex(),
				"quantity", item.Quantity,
				"error", err,
			)
		}
	}
}

// UpdateStatusInput is the payload for UpdateStatus.
type UpdateStatusInput struct {
	Status      string `json:"status" validate:"required"`
	FarmerNotes string `json:"farmerNotes" validate:"nullable,max=500"`
}

// UpdateStatus moves an order along the fulfilment lifecycle. Only the
// order's farmer may change status, one forward step at a time;
// cancellation is allowed from any non-terminal state. Reaching
// delivered stamps the actual delivery time.
func (s *OrderService) UpdateStatus(ctx context.Context, callerID primitive.ObjectID, orderID primitive.ObjectID, in UpdateStatusInput) (models.Order, error) {
	target := models.Status(in.Status)
	if !target.IsValid() {
		return models.Order{}, apperr.Validation(map[string]string{
			"status": fmt.Sprintf("The status field must be one of %v.", models.Statuses),
		})
	}

	order, err := s.find(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.FarmerID != callerID {
		return models.Order{}, apperr.New(apperr.KindForbidden, "Only the order's farmer can update its status")
	}
	if !order.Status.CanTransition(target) {
		return models.Order{}, apperr.Newf(apperr.KindInvalidState,
			"Cannot move order from %s to %s", order.Status, target)
	}

	set := bson.M{
		"status":    target,
		"updatedAt": time.Now().UTC(),
	}
	if notes := strings.TrimSpace(in.FarmerNotes); notes != "" {
		set["farmerNotes"] = notes
	}
	if target == models.StatusDelivered {
		set["actualDelivery"] = time.Now().UTC()
	}

	if err := s.orders.Update(ctx, order.ID, set); err != nil {
		return models.Order{}, apperr.Internal("update order status", err)
	}

	metrics.StatusTransitions.WithLabelValues(string(target)).Inc()
	return s.find(ctx, order.ID)
}

// ReviewInput is the payload for SubmitReview.
type ReviewInput struct {
	Rating int    `json:"rating" validate:"required,between=1,5"`
	Review string `json:"review" validate:"nullable,max=500"`
}

// SubmitReview records the customer's one-time review of a delivered
// order and folds the rating into every ordered product's aggregates.
func (s *OrderService) SubmitReview(ctx context.Context, callerID primitive.ObjectID, orderID primitive.ObjectID, in ReviewInput) (models.Order, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return models.Order{}, apperr.Validation(map[string]string{
			"rating": "The rating field must be between 1 and 5.",
		})
	}
	if utf8.RuneCountInString(in.Review) > 500 {
		return models.Order{}, apperr.Validation(map[string]string{
			"review": "The review field may not be greater than 500 characters.",
		})
	}

	order, err := s.find(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.CustomerID != callerID {
		return models.Order{}, apperr.New(apperr.KindForbidden, "Only the order's customer can review it")
	}
	if order.Status != models.StatusDelivered {
		return models.Order{}, apperr.New(apperr.KindInvalidState, "Only delivered orders can be reviewed")
	}
	if order.Reviewed() {
		return models.Order{}, apperr.New(apperr.KindAlreadyExists, "This order has already been reviewed")
	}

	set := bson.M{
		"rating":    in.Rating,
		"review":    strings.TrimSpace(in.Review),
		"updatedAt": time.Now().UTC(),
	}
	if err := s.orders.Update(ctx, order.ID, set); err != nil {
		return models.Order{}, apperr.Internal("save review", err)
	}

	s.aggregateRatings(ctx, order.Items, in.Rating)

	metrics.ReviewsSubmitted.Inc()
	return s.find(ctx, order.ID)
}

// aggregateRatings folds rating into each product's running average,
// through the pool when one is wired.
func (s *OrderService) aggregateRatings(ctx context.Context, items []models.OrderItem, rating int) {
	for _, item := range items {
		pid := item.ProductID
		job := func() {
			// Detached context: the review response must not wait on the
			// aggregation, and the request context may already be done.
			bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := s.products.ApplyRating(bg, pid, rating); err != nil {
				logger.L.Error("rating aggregation failed", "productId", pid.Hex(), "error", err)
			}
		}

		if s.pool == nil {
			job()
			continue
		}
		if err := s.pool.Submit(job); err != nil {
			// Pool saturated or closing, do the work inline.
			job()
		}
	}
}

// GetOrder returns the order when callerID is its customer or farmer.
func (s *OrderService) GetOrder(ctx context.Context, callerID primitive.ObjectID, orderID primitive.ObjectID) (models.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.CustomerID != callerID && order.FarmerID != callerID {
		return models.Order{}, apperr.New(apperr.KindForbidden, "You are not a participant of this order")
	}
	return order, nil
}

// ListCustomerOrders returns customerID's orders, newest first.
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID primitive.ObjectID, status models.Status, p paginate.Params) ([]models.Order, paginate.Meta, error) {
	if status != "" && !status.IsValid() {
		return nil, paginate.Meta{}, apperr.Validation(map[string]string{
			"status": fmt.Sprintf("The status filter must be one of %v.", models.Statuses),
		})
	}
	orders, total, err := s.orders.ListByCustomer(ctx, customerID, status, p)
	if err != nil {
		return nil, paginate.Meta{}, apperr.Internal("list customer orders", err)
	}
	return orders, paginate.NewMeta(p, len(orders), total), nil
}

// ListFarmerOrders returns farmerID's incoming orders, newest first.
func (s *OrderService) ListFarmerOrders(ctx context.Context, farmerID primitive.ObjectID, status models.Status, p paginate.Params) ([]models.Order, paginate.Meta, error) {
	if status != "" && !status.IsValid() {
		return nil, paginate.Meta{}, apperr.Validation(map[string]string{
			"status": fmt.Sprintf("The status filter must be one of %v.", models.Statuses),
		})
	}
	orders, total, err := s.orders.ListByFarmer(ctx, farmerID, status, p)
	if err != nil {
		return nil, paginate.Meta{}, apperr.Internal("list farmer orders", err)
	}
	return orders, paginate.NewMeta(p, len(orders), total), nil
}

func (s *OrderService) find(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Order{}, apperr.New(apperr.KindNotFound, "Order not found")
		}
		return models.Order{}, apperr.Internal("find order", err)
	}
	return order, nil
}

// round2 keeps money at two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
