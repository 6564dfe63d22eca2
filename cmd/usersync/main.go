package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-shop-backend/internal/config"
	"github.com/ariefcatur/go-shop-backend/internal/events"
	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/logging"
	"github.com/ariefcatur/go-shop-backend/internal/postgres"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
	"github.com/ariefcatur/go-shop-backend/internal/users"
	"github.com/ariefcatur/go-shop-backend/internal/usersync"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName+"-usersync", cfg.Env, cfg.LogLevel)

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

	svc := &usersync.Service{
		Store:       &users.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-usersync",
	}

	group := getenv("USERSYNC_GROUP", "usersync-svc")
	workers := mustAtoi(os.Getenv("USERSYNC_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicUserLifecycle, workers)

	go func() {
		log.Info("usersync consumer started", "group", group, "topic", events.TopicUserLifecycle, "workers", workers)
		if err := cons.Start(ctx, svc.HandleUserEvent); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
