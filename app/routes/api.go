package routes

import (
	"net/http"

	gql "github.com/graphql-go/graphql"

	"farmlink/app/controllers"
	"farmlink/app/models"
	"farmlink/pkg/graphql"
	"farmlink/pkg/metrics"
	"farmlink/pkg/middleware"
	"farmlink/pkg/response"
	"farmlink/pkg/router"
)

// Controllers bundles the handler sets RegisterAPI mounts.
type Controllers struct {
	Auth            *controllers.AuthController
	Products        *controllers.ProductController
	Orders          *controllers.OrderController
	CatalogueSchema gql.Schema
}

// RegisterAPI mounts every route of the service.
func RegisterAPI(r *router.Router, c Controllers) {
	r.Get("/health", "health", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, response.M{"status": "ok"})
	})
	r.Get("/metrics", "metrics", metrics.Handler())

	api := r.Group("/api")

	// Public auth routes.
	authGroup := api.Group("/auth")
	authGroup.Post("/register", "auth.register", c.Auth.Register)
	authGroup.Post("/login", "auth.login", c.Auth.Login)

	// Authenticated profile routes.
	me := api.Group("/auth", middleware.Auth)
	me.Get("/me", "auth.me", c.Auth.Me)
	me.Put("/me", "auth.me.update", c.Auth.UpdateMe)

	// Public catalogue.
	products := api.Group("/products")
	products.Get("", "products.index", c.Products.Index)
	products.Get("/farmer/{farmerID}", "products.by_farmer", c.Products.ByFarmer)
	products.Get("/{id}", "products.show", c.Products.Show)

	// Farmer-only catalogue management.
	manage := api.Group("/products", middleware.Auth, middleware.RequireRole(models.RoleFarmer))
	manage.Post("", "products.create", c.Products.Create)
	manage.Put("/{id}", "products.update", c.Products.Update)
	manage.Delete("/{id}", "products.delete", c.Products.Delete)
	manage.Post("/{id}/image", "products.image", c.Products.UploadImage)

	// Orders. Placement and reviews are customer actions, status updates
	// are farmer actions, retrieval is open to both participants.
	orders := api.Group("/orders", middleware.Auth)
	orders.Post("", "orders.create", c.Orders.Create, middleware.RequireRole(models.RoleCustomer))
	orders.Get("/customer", "orders.customer", c.Orders.CustomerOrders, middleware.RequireRole(models.RoleCustomer))
	orders.Get("/farmer", "orders.farmer", c.Orders.FarmerOrders, middleware.RequireRole(models.RoleFarmer))
	orders.Get("/{id}", "orders.show", c.Orders.Show)
	orders.Put("/{id}/status", "orders.status", c.Orders.UpdateStatus, middleware.RequireRole(models.RoleFarmer))
	orders.Post("/{id}/review", "orders.review", c.Orders.Review, middleware.RequireRole(models.RoleCustomer))

	// Read-only catalogue over GraphQL.
	api.Post("/graphql", "graphql", graphql.Handler(c.CatalogueSchema))
}
