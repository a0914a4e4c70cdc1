package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocksocial/api/handlers"
	"stocksocial/api/middleware"
	"stocksocial/api/routes"
	"stocksocial/config"
	"stocksocial/db"
	"stocksocial/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

const serviceName = "stocksocial"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "etc/app.yaml", "Path to the configuration file")
	flag.Parse()

	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	log.Printf("Starting server... driver=%s backend=%s:%d", conf.Databases.Driver, conf.Backend.Host, conf.Backend.Port)

	store, err := db.Connect(conf)
	if err != nil {
		log.Fatal("Failed to connect to the database: ", err)
	}
	defer store.Close()

	ctx := context.Background()

	var correlationOpts []services.CorrelationOption
	correlationOpts = append(correlationOpts, services.WithMissingCorrelation(conf.MissingCorrelation()))
	if conf.Redis.Enabled {
		addr := fmt.Sprintf("%s:%d", conf.Redis.Host, conf.Redis.Port)
		client, err := services.NewRedisClient(ctx, addr, conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			log.Printf("WARN: redis unavailable, correlation matrices will not be cached: %v", err)
		} else {
			defer client.Close()
			correlationOpts = append(correlationOpts, services.WithMatrixCache(services.NewRedisMatrixCache(client, conf.Redis.MatrixTTL)))
		}
	}

	var events services.EventPublisher = services.NopPublisher{}
	if conf.RabbitMQ.Enabled {
		publisher, err := services.NewRabbitPublisher(conf.RabbitMQ.URL, conf.RabbitMQ.Exchange)
		if err != nil {
			log.Printf("WARN: RabbitMQ unavailable, stock list events are disabled: %v", err)
		} else {
			defer publisher.Close()
			queue := services.NewEventQueue(publisher, services.EVENT_WORKER_COUNT, services.EVENT_QUEUE_SIZE)
			queue.StartWorkers(ctx)
			defer queue.Close()
			events = queue
		}
	}

	correlations := services.NewCorrelationService(store, correlationOpts...)
	gate := services.NewVisibilityGate(store)
	h := handlers.NewHandlers(handlers.Services{
		Users:        services.NewUserService(store),
		Friends:      services.NewFriendService(store, services.WithResendCooldown(conf.Friends.ResendCooldown)),
		Gate:         gate,
		Lists:        services.NewStockListService(store, gate, events, correlations),
		Ledger:       services.NewLedgerService(store),
		Correlations: correlations,
		Statistics:   services.NewStatisticsService(store, correlations),
	})

	if conf.Logs.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware(serviceName))

	routes.PublicApi(router, h)
	routes.ServiceApi(router)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   conf.Backend.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", middleware.UsernameHeader},
		AllowCredentials: true,
	}).Handler(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Backend.Host, conf.Backend.Port),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server forced to shutdown: %v", err)
	}
}
