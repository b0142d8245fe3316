package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/MailTrack/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("config parse error, %v", err))
	}

	httpAddr := cfg.MailTrack.WorkerHTTPAddr
	if httpAddr == "" {
		httpAddr = ":8082"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("mailtrack worker starting", "http_addr", httpAddr, "carrier_mode", cfg.Carriers.Mode)
	err = RunMailTrackWorker(ctx, cfg, defaultWorkerFactories(), workerHTTPOpts{
		httpAddr:    httpAddr,
		swaggerPath: os.Getenv("workerSwaggerPath"),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
