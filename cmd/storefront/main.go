package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/shopeasy/internal/admin"
	"github.com/Skotchmaster/shopeasy/internal/apiclient"
	"github.com/Skotchmaster/shopeasy/internal/cart"
	"github.com/Skotchmaster/shopeasy/internal/catalog"
	"github.com/Skotchmaster/shopeasy/internal/checkout"
	storecfg "github.com/Skotchmaster/shopeasy/internal/config"
	"github.com/Skotchmaster/shopeasy/internal/events"
	"github.com/Skotchmaster/shopeasy/internal/httpserver"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/Skotchmaster/shopeasy/pkg/logging"
	"github.com/Skotchmaster/shopeasy/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/shopeasy/pkg/middleware/logging"
)

const (
	stateIdle     = 2 * time.Hour
	sweepInterval = time.Minute
)

func main() {
	cfg := storecfg.Load(".env")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := openBackend(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("session backend: %v", err)
	}
	logger.Info("session_backend_ready", "backend", backend.Name())

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		logger.Info("event_publisher_ready", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	renderer, err := httpserver.NewRenderer()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	deps := &httpserver.Deps{
		API:       apiclient.NewClient(cfg.APIBaseURL, cfg.APITimeout),
		Sessions:  session.NewManager(backend.Backend, cfg.CookieSecure, cfg.SessionTTL),
		Catalog:   catalog.NewService(cfg.CatalogCacheTTL),
		Carts:     cart.NewRegistry(stateIdle),
		Forms:     admin.NewRegistry(stateIdle),
		Checkouts: checkout.NewRegistry(stateIdle),
		Flashes:   httpserver.NewFlashStore(stateIdle),
		Events:    publisher,
		Ready:     backend.Ready,
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Secure())

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.CookieSecure
	csrfCfg.SkipPaths = []string{"/health/live", "/health/ready"}
	e.Use(csrf.Middleware(csrfCfg))

	httpserver.Register(e, deps)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go deps.Carts.Run(janitorCtx, sweepInterval)
	go deps.Forms.Run(janitorCtx, sweepInterval)
	go deps.Checkouts.Run(janitorCtx, sweepInterval)
	go sweepLoop(janitorCtx, logger, deps.Flashes, backend)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("storefront listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	stopJanitor()

	if err := publisher.Close(); err != nil {
		logger.Warn("event_publisher_close_failed", "error", err)
	}
	backend.Close()

	log.Println("storefront stopped")
}

func sweepLoop(ctx context.Context, logger *slog.Logger, flashes *httpserver.FlashStore, backend *sessionBackend) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			flashes.Sweep()
			if backend.Purge == nil {
				continue
			}
			n, err := backend.Purge(ctx)
			if err != nil {
				logger.Warn("session_purge_failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("session_purged", "rows", n)
			}
		}
	}
}
