package controllers

import (
	"net/http"

	"farmlink/app/models"
	"farmlink/app/services"
	"farmlink/pkg/bind"
	"farmlink/pkg/paginate"
	"farmlink/pkg/response"
)

const defaultOrderPageSize = 10

// OrderController handles order placement, status updates, reviews, and
// retrieval.
type OrderController struct {
	service *services.OrderService
}

func NewOrderController(service *services.OrderService) *OrderController {
	return &OrderController{service: service}
}

// Create handles POST /api/orders.
func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	customerID, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var in services.PlaceOrderInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationFailed(w, errs)
		return
	}

	order, err := c.service.PlaceOrder(r.Context(), customerID, in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, "Order placed", response.M{"order": order})
}

// Show handles GET /api/orders/{id}.
func (c *OrderController) Show(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := c.service.GetOrder(r.Context(), caller, id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, response.M{"order": order})
}

// CustomerOrders handles GET /api/orders/customer.
func (c *OrderController) CustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	p := paginate.FromRequest(r, defaultOrderPageSize)
	status := models.Status(r.URL.Query().Get("status"))

	orders, meta, err := c.service.ListCustomerOrders(r.Context(), customerID, status, p)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, response.M{"orders": orders, "pagination": meta})
}

// FarmerOrders handles GET /api/orders/farmer.
func (c *OrderController) FarmerOrders(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	p := paginate.FromRequest(r, defaultOrderPageSize)
	status := models.Status(r.URL.Query().Get("status"))

	orders, meta, err := c.service.ListFarmerOrders(r.Context(), farmerID, status, p)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, response.M{"orders": orders, "pagination": meta})
}

// UpdateStatus handles PUT /api/orders/{id}/status.
func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in services.UpdateStatusInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationFailed(w, errs)
		return
	}

	order, err := c.service.UpdateStatus(r.Context(), caller, id, in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OKMessage(w, "Order status updated", response.M{"order": order})
}

// Review handles POST /api/orders/{id}/review.
func (c *OrderController) Review(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in services.ReviewInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationFailed(w, errs)
		return
	}

	order, err := c.service.SubmitReview(r.Context(), caller, id, in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, "Review submitted", response.M{"order": order})
}
