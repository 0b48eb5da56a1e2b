package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/roadside-dispatch/internal/config"
	"github.com/example/roadside-dispatch/internal/dispatch"
	"github.com/example/roadside-dispatch/internal/fare"
	httpapi "github.com/example/roadside-dispatch/internal/http"
	"github.com/example/roadside-dispatch/internal/ledger"
	"github.com/example/roadside-dispatch/internal/logging"
	"github.com/example/roadside-dispatch/internal/notify"
	"github.com/example/roadside-dispatch/internal/payments"
	"github.com/example/roadside-dispatch/internal/pool"
	"github.com/example/roadside-dispatch/internal/route"
	"github.com/example/roadside-dispatch/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PGDSN != "" && cfg.RunMigrations {
		runMigrations(cfg.PGDSN, logger)
	}

	fareTable := fare.DefaultTable()
	if cfg.PGDSN != "" {
		if t, err := fare.LoadTableFromPostgres(cfg.PGDSN); err == nil {
			fareTable = t
			logger.Info("fare_table_loaded", "source", "postgres")
		} else {
			logger.Warn("fare_table_fallback", "error", err)
		}
	}

	osrm := route.NewOSRMClient(cfg.OSRMEndpoint, cfg.RouteTimeout)
	if cfg.RedisAddr != "" {
		osrm.Cache = route.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, "route", cfg.RouteCacheTTL)
	} else {
		osrm.Cache = route.NewMemoryCache(cfg.RouteCacheTTL)
	}
	geocoder := route.NewGeocoder(cfg.GeocoderEndpoint, cfg.RouteTimeout)

	hub := notify.NewWSHub(logger)
	suggester := route.NewSuggester(geocoder, cfg.SuggestMinChars, cfg.SuggestDebounce)
	suggester.OnResults = hub.SuggestionsReady

	var candidates pool.CandidatePool = pool.DefaultPool()
	if cfg.RedisAddr != "" {
		candidates = pool.NewRedisPool(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPoolKey, pool.DefaultPool())
	}

	var store storage.TripStore = storage.NewMemoryStore()
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Warn("trip_store_fallback", "error", err)
		}
	}

	var charger dispatch.Charger
	if cfg.StripeAPIKey != "" {
		charger = payments.NewStripeCharger(cfg.StripeAPIKey)
	}

	led := ledger.New(cfg.ShiftStartHour, cfg.ShiftEndHour)
	dispatcher := dispatch.New(dispatch.Config{
		DecisionWindow: cfg.DecisionWindow,
		OfferInterval:  cfg.OfferInterval,
		RouteTimeout:   cfg.RouteTimeout,
	}, dispatch.Deps{
		Pool:    candidates,
		Routes:  osrm,
		Fares:   fareTable,
		Ledger:  led,
		Store:   store,
		Notify:  hub,
		Charger: charger,
		Suggest: suggester,
		Logger:  logger,
	})

	resolver := &route.Resolver{Geocoder: geocoder, Routes: osrm}
	srv := httpapi.NewServer(dispatcher, suggester, geocoder, resolver, hub, logger)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Heartbeat: the external clock that advances online time and
	// drives offer emission.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				dispatcher.Tick(now)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shCtx)
	}()

	logger.Info("server_listening", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func runMigrations(dsn string, logger *slog.Logger) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Warn("migration db open error", "error", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_trips.sql"))
	if err != nil {
		logger.Warn("migration read error", "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logger.Warn("migration exec error", "error", err)
	}
}
