// cmd/shop/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"polycycle/internal/auth"
	"polycycle/internal/bus"
	"polycycle/internal/cart"
	"polycycle/internal/catalog"
	"polycycle/internal/checkout"
	"polycycle/internal/clients"
	"polycycle/internal/config"
	"polycycle/internal/db"
	"polycycle/internal/eventlog"
	"polycycle/internal/logging"
	"polycycle/internal/middleware"
	"polycycle/internal/notification"
	"polycycle/internal/order"
	"polycycle/internal/outreach"
	"polycycle/internal/search"
	"polycycle/internal/telemetry"
)

func main() {
	cfg, err := config.Load(envOr("POLYCYCLE_CONFIG_DIR", "configs"), envOr("POLYCYCLE_ENV", "dev"))
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.Init("shop", cfg.App.LogFile, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "polycycle-shop", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	pg, err := db.Open(ctx, db.Options{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := db.EnsureSchema(ctx, pg); err != nil {
		log.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	events := eventlog.New(pg)

	notifications := notification.NewService(pg, events, logging.New("notification"))
	alerter := notification.NewAlerter(notifications)

	catalogSvc := catalog.NewService(pg, events, alerter, logging.New("catalog"))

	mirror := catalog.NewMirror(catalogSvc, logging.New("catalog-mirror"))

	var index *search.Index
	if cfg.Search.MeiliHost != "" {
		index = search.NewIndex(cfg.Search.MeiliHost, cfg.Search.MeiliAPIKey, cfg.Search.MeiliIndex, logging.New("search-index"))
		mirror.OnReload(index.Sync)
	}
	engine := search.NewEngine(mirror, index, logging.New("search"))

	listener := bus.NewListener(cfg.Postgres.DSN, logging.New("bus"))
	go func() {
		if err := mirror.Run(ctx, listener); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("catalog mirror stopped", "error", err)
		}
	}()

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.SessionTTL)
	authSvc := auth.NewService(pg, events, tokens, cfg.Auth.AdminEmail, logging.New("auth"))

	orderSvc := order.NewService(pg, events, logging.New("order"))

	carts := cart.NewStore()

	workflow := checkout.NewWorkflow(orderSvc, alerter, logging.New("checkout"))

	mailer := clients.NewMailerClient(cfg.Mailer.WebhookURL, cfg.Mailer.Timeout)
	outreachSvc := outreach.NewService(pg, mailer, cfg.Mailer.ContactAddr, logging.New("outreach"))

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics)
	r.Use(middleware.Sessions(authSvc))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Mount("/products", catalog.NewHandler(catalogSvc).PublicRoutes())
	r.Mount("/search", search.NewHandler(engine).Routes())
	r.Mount("/cart", cart.NewHandler(carts, catalogSvc, logging.New("cart")).Routes())
	r.Mount("/auth", auth.NewHandler(authSvc).Routes())
	r.Mount("/", outreach.NewHandler(outreachSvc).PublicRoutes())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Mount("/checkout", checkout.NewHandler(workflow, carts, logging.New("checkout")).Routes())
		r.Mount("/orders", order.NewHandler(orderSvc).Routes())
	})

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("storefront listening", "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
