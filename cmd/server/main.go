package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apicollab/apicollab/pkg/api"
	"github.com/apicollab/apicollab/pkg/config"
	"github.com/apicollab/apicollab/pkg/proxy"
	"github.com/apicollab/apicollab/pkg/realtime"
	"github.com/apicollab/apicollab/pkg/store"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	configVar := flag.String("config", "", "path to an optional YAML config file")
	addrVar := flag.String("addr", "", "override the address to listen on")
	flag.Parse()

	cfg, err := config.Load(*configVar)
	if err != nil {
		return err
	}
	if *addrVar != "" {
		cfg.ListenAddr = *addrVar
	}

	slog.Info("Opening database", "path", cfg.DatabasePath)
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := realtime.NewRegistry()
	scheduler := realtime.NewScheduler(
		cfg.DebounceWindow(),
		db.ApplyFieldUpdate,
		realtime.SaveStatusNotifier(registry),
	)
	defer scheduler.Stop()

	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			slog.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})

	r.Path("/ws").Handler(realtime.NewHandler(registry, scheduler))
	r.Methods(http.MethodPost).Path("/proxy").Handler(proxy.NewHandler(proxy.NewExecutor(cfg.ProxyTimeout())))
	r.Path("/metrics").Handler(promhttp.Handler())
	api.New(db).Register(r)
	r.Methods(http.MethodGet).Path("/").HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte("API Collab Server is running"))
	})

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("Listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen failed", "err", err)
		}
	}()

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exit
	slog.Info("Signal caught", "sig", sig)
	_ = httpServer.Shutdown(context.Background())

	wg.Wait()
	return nil
}
