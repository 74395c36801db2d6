package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/oakmart/storefront/internal/account"
	"github.com/oakmart/storefront/internal/catalog"
	"github.com/oakmart/storefront/internal/config"
	"github.com/oakmart/storefront/internal/events"
	"github.com/oakmart/storefront/internal/httpapi"
	"github.com/oakmart/storefront/internal/logger"
	"github.com/oakmart/storefront/internal/mirror"
	"github.com/oakmart/storefront/internal/order"
	"github.com/oakmart/storefront/internal/payment"
)

func main() {
	log := logger.New(os.Stdout, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cart mirror: mongo behind a redis read-through cache.
	mongoCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := mirror.ConnectMongoDB(mongoCtx, cfg.MongoURI, cfg.MongoDB)
	cancel()
	if err != nil {
		log.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	cartRepo := mirror.NewMongoRepository(db)
	cartCache := mirror.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	carts := mirror.NewService(cartRepo, cartCache, log)

	// Orders in postgres.
	creds := &order.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsPath,
	}
	orderRepo, err := order.NewPostgresRepository(creds)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(creds); err != nil {
		log.Error("failed to run order migrations", "error", err)
		os.Exit(1)
	}

	// Accounts share the postgres instance under their own migrations table.
	accountCreds := &account.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.AccountMigrationsPath,
	}
	accountRepo, err := account.NewPostgresRepository(accountCreds)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer accountRepo.Close()
	if err := accountRepo.RunMigrations(accountCreds); err != nil {
		log.Error("failed to run account migrations", "error", err)
		os.Exit(1)
	}
	accounts := account.NewService(accountRepo, log)

	publisher := events.NewPublisher(cfg.KafkaBrokers...)
	defer publisher.Close()
	orders := order.NewService(orderRepo, publisher, log)

	// Clear mirrored carts when their orders confirm.
	consumer := events.NewConsumer(carts, log, cfg.KafkaBrokers...)
	defer consumer.Close()
	go consumer.Run(ctx)

	// Product catalog in sqlite.
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		log.Error("failed to run catalog migrations", "error", err)
		os.Exit(1)
	}

	processor := payment.NewMockProcessor(nil)

	cartHandler := httpapi.NewCartHandler(carts, cfg.RequestTimeout.Std())
	ordersHandler := httpapi.NewOrdersHandler(orders, cfg.RequestTimeout.Std())
	paymentHandler := httpapi.NewPaymentHandler(processor, cfg.RequestTimeout.Std())
	productHandler := httpapi.NewProductHandler(products, cfg.RequestTimeout.Std())
	authHandler := httpapi.NewAuthHandler(accounts, cfg.RequestTimeout.Std())

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httpapi.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout.Std()))
	r.Use(middleware.Compress(5))
	r.Use(httpapi.SessionMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordersHandler.CreateOrder)
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
		})
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Get("/profile", authHandler.GetProfile)
			r.Post("/logout", authHandler.Logout)
		})
		r.Post("/payments", paymentHandler.ProcessPayment)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{product_id}", productHandler.GetProduct)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Std())
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("storefront stopped")
}
