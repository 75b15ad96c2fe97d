package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lotflow/lotflow/internal/config"
	"github.com/lotflow/lotflow/internal/log"
	"github.com/lotflow/lotflow/internal/otel"
	"github.com/lotflow/lotflow/internal/rest"
	"github.com/lotflow/lotflow/pkg/bpm"
	"github.com/lotflow/lotflow/pkg/haccp"
	"github.com/lotflow/lotflow/pkg/lot"
	"github.com/lotflow/lotflow/pkg/storage/inmemory"
)

func main() {
	log.Init()

	appContext, ctxCancel := context.WithCancel(context.Background())

	conf := config.InitConfig()

	openTelemetry, err := otel.SetupOtel(conf.Tracing)
	if err != nil {
		log.Error("Failed to set up OTEL: %s", err)
		os.Exit(1)
	}

	store := inmemory.NewStorage()
	engine := bpm.NewEngine(store)
	haccpService := haccp.NewService(store)
	lotService := lot.NewService(store)

	log.Info("Starting engine %s", engine.Name())

	// Start the public API
	svr := rest.NewServer(&engine, haccpService, lotService, conf)
	svr.Start()

	appStop := make(chan os.Signal, 2)
	signal.Notify(appStop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	handleSigterm(appStop, appContext)

	ctxCancel()
	// cleanup
	svr.Stop(appContext)
	openTelemetry.Stop(appContext)
}

func handleSigterm(appStop chan os.Signal, ctx context.Context) {
	signal.Notify(appStop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	sig := <-appStop
	log.Infof(ctx, "Received %s. Shutting down", sig.String())
}
