package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sandeepkv93/deepscan-backend/internal/di"
)

func main() {
	a, err := di.InitializeApp()
	if err != nil {
		log.Fatalf("deepscan api: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil {
		log.Fatalf("deepscan api: %v", err)
	}
}
