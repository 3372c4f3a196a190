package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bidhall/bidhall/app"
	"github.com/bidhall/bidhall/internal/config"
)

func main() {
	// Local development keeps secrets in .env; deployments inject real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Auth.TokenSecret == "" {
		log.Fatal("BIDHALL_AUTH_TOKENSECRET must be set")
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	application.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	application.Stop()
}
