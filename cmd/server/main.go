package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examsim/internal/cache"
	"examsim/internal/config"
	"examsim/internal/events"
	"examsim/internal/repository"
	"examsim/internal/service"
	"examsim/internal/transport/rest"
	"examsim/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	log.Println("started")
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	cfg := config.Load()
	svcCfg := cfg.SessionService
	if !svcCfg.IsEnabled() {
		log.Fatal("SESSION_SERVICE_URL is not set")
	}
	log.Printf("Session service: %s (timeout %s)", svcCfg.BaseURL, svcCfg.Timeout())
	if svcCfg.Token == "" {
		log.Println("  Fallback token: NOT SET (student tokens only)")
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURI,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	checkpoints := cache.NewCheckpointCache(rdb, cfg.CheckpointTTL)

	// Event bus
	bus := events.NewBus()
	defer bus.Close()

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	if err := bus.Subscribe(ctx, events.TopicProgress, wsHub.HandleEvent); err != nil {
		log.Fatal("Failed to subscribe hub to progress events:", err)
	}
	if err := bus.Subscribe(ctx, events.TopicFinalized, wsHub.HandleEvent); err != nil {
		log.Fatal("Failed to subscribe hub to finalized events:", err)
	}
	log.Println("WebSocket hub started")

	// MongoDB result archive (optional)
	var resultSvc *service.ResultService
	if cfg.MongoEnabled() {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer mongoClient.Disconnect(context.Background())

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = mongoClient.Ping(pingCtx, nil)
		cancel()
		if err != nil {
			log.Fatal("Failed to ping MongoDB:", err)
		}
		log.Println("Connected to MongoDB")

		resultSvc = service.NewResultService(repository.NewResultRepo(mongoClient.Database(cfg.MongoDB)))
		if err := bus.Subscribe(ctx, events.TopicFinalized, resultSvc.HandleFinalized); err != nil {
			log.Fatal("Failed to subscribe result archive:", err)
		}
	} else {
		log.Println("Warning: MONGO_URI not set, session history disabled")
	}

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWTSecret)
	sessionClient := service.NewSessionClient(svcCfg.BaseURL, svcCfg.Token, svcCfg.Timeout())
	stores := service.NewStoreRegistry(sessionClient, checkpoints, bus)

	sweepStop := make(chan struct{})
	defer close(sweepStop)
	go stores.RunSweeper(5*time.Minute, cfg.StoreIdle, sweepStop)

	container := &rest.Container{
		AuthService:    authSvc,
		Stores:         stores,
		ResultService:  resultSvc,
		WSHub:          wsHub,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST /v1/simulation/sessions")
		log.Println("  POST /v1/simulation/sessions/{id}/load")
		log.Println("  GET  /v1/simulation/state")
		log.Println("  POST /v1/simulation/answer")
		log.Println("  GET/PUT /v1/simulation/draft")
		log.Println("  POST /v1/simulation/{next,prev,jump,pause,resume,finalize}")
		log.Println("  DELETE /v1/simulation")
		log.Println("  GET  /v1/simulation/history")
		log.Println("  WS   /v1/ws/simulation")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
