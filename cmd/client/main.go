package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"territory/client/internal/app"
	"territory/client/internal/config"
	"territory/client/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load(telemetry.WrapLogger(log.Default()))
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := app.Run(ctx, app.Config{Settings: settings}); err != nil {
		log.Fatalf("%v", err)
	}
}
