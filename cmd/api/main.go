package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-shop-backend/internal/catalog"
	"github.com/ariefcatur/go-shop-backend/internal/config"
	"github.com/ariefcatur/go-shop-backend/internal/events"
	"github.com/ariefcatur/go-shop-backend/internal/httpx"
	"github.com/ariefcatur/go-shop-backend/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/logging"
	"github.com/ariefcatur/go-shop-backend/internal/media"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/ariefcatur/go-shop-backend/internal/postgres"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
	"github.com/ariefcatur/go-shop-backend/internal/reviews"
	"github.com/ariefcatur/go-shop-backend/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	placedProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderPlaced, 1024)
	placedProd.Start(ctx)
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderStatus, 1024)
	statusProd.Start(ctx)

	// Repos & services
	catalogRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	userRepo := &users.Repo{DB: db}
	reviewRepo := &reviews.Repo{DB: db}

	engine := inventory.NewEngine(catalogRepo)
	orderSvc := &orders.Service{Store: orderRepo, Reserver: engine}
	reviewSvc := &reviews.Service{Orders: orderRepo, Store: reviewRepo}
	uploader := media.NewHostClient(cfg.MediaUploadURL, cfg.MediaAPIKey)

	auth := &httpx.Auth{Users: userRepo, AdminEmail: cfg.AdminEmail}

	oh := &httpx.OrdersHandler{
		Service: orderSvc, Repo: orderRepo, Reviews: reviewRepo,
		Redis: rdb, Producer: placedProd, ServiceName: cfg.ServiceName,
	}
	ph := &httpx.ProductsHandler{Catalog: catalogRepo, Reviews: reviewRepo}
	uh := &httpx.UsersHandler{Users: userRepo}
	rh := &httpx.ReviewsHandler{Service: reviewSvc}
	ah := &httpx.AdminHandler{
		Catalog: catalogRepo, Orders: orderSvc, OrderRepo: orderRepo, Users: userRepo,
		Media: uploader, Redis: rdb, Producer: statusProd, ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		oh.Register(r)
		ph.Register(r)
		uh.Register(r)
		rh.Register(r)
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			ah.Register(r)
		})
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	placedProd.Close()
	statusProd.Close()
	cancel()
	placedProd.WaitClosed()
	statusProd.WaitClosed()
}
