package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	echoweb "github.com/trezcool/masomoweb/apps/web/echo"
	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/core/session"
	"github.com/trezcool/masomoweb/core/shell"
	"github.com/trezcool/masomoweb/services/apiclient"
	logsvc "github.com/trezcool/masomoweb/services/logger"
	"github.com/trezcool/masomoweb/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	storageLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "STORAGE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	storageLogger.Enable(!conf.Debug)

	// set up client storage
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := storage.Open(ctx, conf)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = backend.Close(); err != nil {
			storageLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	api, err := apiclient.New(
		conf.API.BaseURL,
		apiclient.WithTimeout(conf.API.Timeout),
		apiclient.WithLogger(logger),
		apiclient.WithUserAgent(conf.AppName+"/"+conf.Build),
	)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up api client: %v", err), err)
	}

	registry := shell.NewRegistry(
		backend,
		core.SystemClock,
		logger,
		session.WithCeiling(conf.Session.Ceiling),
		session.WithExpiryRevalidation(conf.Session.RevalidateOnExpiry),
	)
	defer registry.Close()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Session.Storage)
	expvar.Publish("shells", expvar.Func(func() interface{} { return registry.Len() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// drop the shells of clients gone idle
	sweepDone := make(chan struct{})
	defer close(sweepDone)
	go sweep(registry, conf.Session.IdleTimeout, sweepDone)

	// =========================================================================
	// Start Web Service

	server := echoweb.NewServer(
		echoweb.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Registry:   registry,
			API:        api,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func sweep(registry *shell.Registry, maxIdle time.Duration, done <-chan struct{}) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			registry.Sweep(maxIdle)
		}
	}
}
