// Package server boots the farmlink HTTP service: configuration, MongoDB,
// redis, storage, the worker pool, and the router, then serves with
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmlink/app/controllers"
	"farmlink/app/repositories"
	"farmlink/app/routes"
	"farmlink/app/services"
	"farmlink/config"
	"farmlink/pkg/cache"
	"farmlink/pkg/database"
	"farmlink/pkg/logger"
	"farmlink/pkg/metrics"
	"farmlink/pkg/middleware"
	"farmlink/pkg/reqid"
	"farmlink/pkg/router"
	"farmlink/pkg/storage"
	"farmlink/pkg/workerpool"
)

const shutdownGrace = 15 * time.Second

// Start boots every component and blocks until SIGINT/SIGTERM.
func Start() error {
	if err := config.Load(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.Connect(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = db.EnsureIndexes(ctx)
	cancel()
	if err != nil {
		return err
	}

	// Optional: mirror logs into a capped Mongo collection.
	if sink := config.MongoLogSink(); sink != "" {
		mh := logger.NewMongoHandler(db.Collection(sink))
		defer mh.Close()
		logger.SetHandler(logger.NewMultiHandler(currentHandler(), mh))
	}

	if err := cache.Connect(); err != nil {
		logger.L.Warn("redis unavailable, listing cache disabled", "error", err)
	}
	storage.Connect()

	pool := workerpool.New(4, 64)
	defer pool.Shutdown()

	h := buildHandler(db, pool)

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("farmlink listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.L.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel = context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(ctx)
}

// buildHandler wires repositories, services, controllers, and middleware.
func buildHandler(db *database.DB, pool *workerpool.Pool) http.Handler {
	users := repositories.NewUserRepository(db.Collection(database.ColUsers))
	products := repositories.NewProductRepository(db.Collection(database.ColProducts))
	orders := repositories.NewOrderRepository(db.Collection(database.ColOrders))

	authSvc := services.NewAuthService(users)
	productSvc := services.NewProductService(products)
	orderSvc := services.NewOrderService(orders, products, pool)

	schema, err := controllers.NewCatalogueSchema(productSvc)
	if err != nil {
		// Schema construction only fails on a programming error.
		panic(err)
	}

	r := router.New()
	r.Use(
		metrics.Middleware(),
		middleware.Recover,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS,
		middleware.RateLimit,
	)

	routes.RegisterAPI(r, routes.Controllers{
		Auth:            controllers.NewAuthController(authSvc),
		Products:        controllers.NewProductController(productSvc),
		Orders:          controllers.NewOrderController(orderSvc),
		CatalogueSchema: schema,
	})

	return r.Handler()
}

// currentHandler returns the handler behind the global logger.
func currentHandler() slog.Handler {
	return logger.L.Handler()
}
