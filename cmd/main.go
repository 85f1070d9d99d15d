package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/zerodha/snmp-lama/internal/check"
	"github.com/zerodha/snmp-lama/internal/extract"
	"github.com/zerodha/snmp-lama/internal/inventory"
	"github.com/zerodha/snmp-lama/internal/push"
	"github.com/zerodha/snmp-lama/pkg/models"
)

var (
	// Version of the build. This is injected at build-time.
	buildString = "unknown"
)

// configError prints an UNKNOWN status line and exits. Monitoring systems
// read stdout, so the message goes there.
func configError(err error) {
	fmt.Printf("%d %s - config error: %v\n", int(models.StateUnknown), models.StateUnknown, err)
	os.Exit(int(models.StateUnknown))
}

func main() {
	// Initialise and load the config.
	ko, err := initConfig("config.toml", "SNMP_LAMA_", os.Args[1:])
	if err != nil {
		configError(err)
	}

	// One-shot modes keep stdout for the status output.
	lo := initLogger(ko.MustString("app.log_level"), os.Stderr)

	params, err := initParams(ko)
	if err != nil {
		configError(err)
	}
	oids, err := initOIDs(ko)
	if err != nil {
		configError(err)
	}
	if err := validateConfig(ko, params); err != nil {
		configError(err)
	}

	fetcher, err := initFetcher(ko, lo)
	if err != nil {
		configError(err)
	}

	ex := extract.New(oids)
	app := &App{
		lo:     lo,
		opts:   initOpts(ko),
		poller: initPoller(ko, lo, fetcher, oids),
		eval:   check.NewEvaluator(ex, params),
		inv:    inventory.New(ex, params),
	}

	// Create a new context which is cancelled when `SIGINT`/`SIGTERM` is received.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch app.opts.Mode {
	case modeComposite:
		code := app.RunComposite(ctx, os.Stdout)
		cancel()
		os.Exit(code)
	case modeInventory:
		code := app.RunInventory(ctx, os.Stdout)
		cancel()
		os.Exit(code)
	}

	lo.Info("booting snmp-lama version", "version", buildString, "target", app.opts.Target)

	app.metricsMgr = initMetricsManager()
	app.pushMgr, err = initPushManager(ko, lo)
	if err != nil {
		lo.Error("failed to init push manager", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              app.opts.MetricsAddress,
		Handler:           app.metricsMgr.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		lo.Info("serving metrics", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lo.Error("metrics server failed", "error", err)
			cancel()
		}
	}()

	// Start the worker in background.
	var wg = &sync.WaitGroup{}
	wg.Add(1)
	go app.worker(ctx, wg)

	// Listen on the close channel indefinitely until a
	// `SIGINT` or `SIGTERM` is received.
	<-ctx.Done()
	// Cancel the context to gracefully shutdown and perform
	// any cleanup tasks.
	cancel()
	// Wait for all workers to finish.
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lo.Error("metrics server shutdown failed", "error", err)
	}

	app.lo.Info("shutting down")
}

func (app *App) worker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(app.opts.SyncInterval)
	defer ticker.Stop()

	app.lo.Info("starting worker", "interval", app.opts.SyncInterval)
	for {
		select {
		case <-ticker.C:
			p := app.Cycle(ctx)
			app.lo.Info("cycle complete", "state", p.Composite.State, "services", len(p.Services))

			if app.pushMgr == nil {
				continue
			}
			app.pushWithRetry(ctx, p)
		case <-ctx.Done():
			app.lo.Info("quitting worker")
			return
		}
	}
}

// pushWithRetry pushes p up to MaxRetries times. A resynced sequence id is
// retried straight away.
func (app *App) pushWithRetry(ctx context.Context, p push.Payload) {
	for i := 0; i < app.opts.MaxRetries; i++ {
		err := app.pushMgr.Push(ctx, p)
		if err == nil {
			return
		}
		if errors.Is(err, push.ErrRetry) {
			app.lo.Info("retrying push with resynced sequence id", "attempt", i+1)
			continue
		}

		app.lo.Error("failed to push results", "error", err)
		if i < app.opts.MaxRetries-1 {
			select {
			case <-time.After(app.opts.RetryInterval):
			case <-ctx.Done():
				return
			}
			app.lo.Info("retrying push", "attempt", i+1)
			continue
		}
		app.lo.Error("giving up on push", "error", err, "max_retries", app.opts.MaxRetries)
	}
}
