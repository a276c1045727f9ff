package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yeremiapane/restroflow/config"
	"github.com/yeremiapane/restroflow/consumer"
	"github.com/yeremiapane/restroflow/controllers"
	"github.com/yeremiapane/restroflow/database"
	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/messaging"
	"github.com/yeremiapane/restroflow/metrics"
	"github.com/yeremiapane/restroflow/router"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db, cfg.SeedTables); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry, cfg.MetricsPrefix)

	changes := hub.New(m)
	defer changes.Close()

	var notifier services.Notifier = services.LogNotifier{}
	var intake *messaging.Consumer
	if cfg.AMQPURL != "" {
		publisher, err := messaging.NewPublisher(cfg.AMQPURL)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to connect publisher: %v", err)
		}
		defer publisher.Close()
		notifier = publisher

		intake, err = messaging.NewConsumer(cfg.AMQPURL)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to connect consumer: %v", err)
		}
	}

	restaurant := services.NewRestaurant(db, services.Options{
		Notifier:           notifier,
		Changes:            changes,
		Metrics:            m,
		AllocateOnToggle:   cfg.AllocateOnToggle,
		DefaultCountryCode: cfg.DefaultCountryCode,
		Location:           cfg.Timezone,
	})

	var intakeConsumer *consumer.IntakeConsumer
	if intake != nil {
		msgs, err := intake.Consume()
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to consume intake queue: %v", err)
		}
		intakeConsumer = consumer.NewIntakeConsumer(restaurant.Queue)
		intakeConsumer.Start(msgs)
	}

	r := router.SetupRouter(router.Options{
		Restaurant:     restaurant,
		Hub:            changes,
		Metrics:        m,
		Gatherer:       registry,
		Admin:          controllers.AdminCredentials{Username: cfg.AdminUser, Password: cfg.AdminPassword},
		TokenTTL:       cfg.TokenTTL,
		AllowedOrigins: cfg.AllowedOrigins,
		LoginRate:      cfg.LoginRate,
		LoginBurst:     cfg.LoginBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Info("Shutting down...")

	// Closing the hub ends every live stream so Shutdown does not wait on them.
	changes.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown: %v", err)
	}

	if intake != nil {
		intake.Close()
		intakeConsumer.Wait()
	}
	utils.InfoLogger.Info("Server stopped")
}
