package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"print-checkout-backend/internal/client"
	"print-checkout-backend/internal/config"
	"print-checkout-backend/internal/handler"
	"print-checkout-backend/internal/repository"
	"print-checkout-backend/internal/server"
	"print-checkout-backend/internal/service"
	"print-checkout-backend/internal/worker"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	db := client.InitSqliteClient(cfg.LedgerDBPath)
	airtableClient := client.NewAirtableClient(&cfg.Airtable)
	stripeClient := client.NewStripeClient(&cfg.Stripe)

	reservationRepo := repository.NewReservationRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	reservationService := service.NewReservationService(
		airtableClient,
		reservationRepo,
		time.Duration(cfg.HoldMinutes)*time.Minute,
	)
	checkoutService := service.NewCheckoutService(
		airtableClient,
		stripeClient,
		reservationService,
		cfg.SiteBaseURL,
	)
	webhookService := service.NewWebhookService(
		stripeClient,
		airtableClient,
		reservationService,
		webhookEventRepo,
	)

	checkoutHandler := handler.NewCheckoutHandler(checkoutService, webhookService, cfg.SiteBaseURL)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(checkoutHandler)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	sweeper := worker.NewSweeper(reservationService, time.Duration(cfg.SweepMinutes)*time.Minute)
	go sweeper.Run(sweepCtx)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	sweepCancel()

	_, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}
