// cmd/admin/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"polycycle/internal/auth"
	"polycycle/internal/bus"
	"polycycle/internal/catalog"
	"polycycle/internal/config"
	"polycycle/internal/db"
	"polycycle/internal/eventlog"
	"polycycle/internal/logging"
	"polycycle/internal/middleware"
	"polycycle/internal/notification"
	"polycycle/internal/order"
	"polycycle/internal/outreach"
	"polycycle/internal/telemetry"
)

func main() {
	cfg, err := config.Load(envOr("POLYCYCLE_CONFIG_DIR", "configs"), envOr("POLYCYCLE_ENV", "dev"))
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.Init("admin", cfg.App.LogFile, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "polycycle-admin", cfg.Telemetry.OTLPEndpoint)
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

	alertMirror := notification.NewMirror(notifications, logging.New("notification-mirror"))
	listener := bus.NewListener(cfg.Postgres.DSN, logging.New("bus"))
	go func() {
		if err := alertMirror.Run(ctx, listener); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification mirror stopped", "error", err)
		}
	}()

	catalogSvc := catalog.NewService(pg, events, alerter, logging.New("catalog"))
	orderSvc := order.NewService(pg, events, logging.New("order"))
	outreachSvc := outreach.NewService(pg, nil, "", logging.New("outreach"))

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.SessionTTL)
	authSvc := auth.NewService(pg, events, tokens, cfg.Auth.AdminEmail, logging.New("auth"))

	if err := authSvc.SeedAdmin(ctx); err != nil {
		log.Error("admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics)
	r.Use(middleware.Sessions(authSvc))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// The sign-in endpoints stay open; everything else needs the admin role.
	r.Mount("/auth", auth.NewHandler(authSvc).Routes())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Mount("/products", catalog.NewHandler(catalogSvc).AdminRoutes())
		r.Mount("/orders", order.NewHandler(orderSvc).AdminRoutes())
		r.Mount("/notifications", notification.NewHandler(notifications, alertMirror).Routes())
		r.Mount("/users", auth.NewHandler(authSvc).AdminRoutes())
		r.Mount("/outreach", outreach.NewHandler(outreachSvc).AdminRoutes())
		r.Get("/activity", handleActivity(events))
		r.Get("/stats", handleStats(orderSvc, authSvc))
		r.Get("/backup", handleBackup(catalogSvc, orderSvc, authSvc))
	})

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("back office listening", "addr", cfg.App.HTTPAddr)
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

// handleActivity serves the audit feed for the dashboard.
func handleActivity(events *eventlog.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		recent, err := events.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, "failed to load activity", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(recent)
	}
}

// handleStats serves the dashboard aggregates: order figures from the orders
// table, customer count from accounts.
func handleStats(orders order.Service, accounts auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderStats, err := orders.Stats(r.Context())
		if err != nil {
			http.Error(w, "failed to load stats", http.StatusInternalServerError)
			return
		}
		customers, err := accounts.CountUsers(r.Context())
		if err != nil {
			http.Error(w, "failed to load stats", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"total_orders":     orderStats.TotalOrders,
			"pending_orders":   orderStats.PendingOrders,
			"revenue":          orderStats.Revenue,
			"active_customers": customers,
		})
	}
}

// handleBackup exports products, orders, and users as one JSON document for
// offline safekeeping.
func handleBackup(products catalog.Service, orders order.Service, accounts auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productList, err := products.List(r.Context())
		if err != nil {
			http.Error(w, "failed to export products", http.StatusInternalServerError)
			return
		}
		orderList, err := orders.ListAll(r.Context())
		if err != nil {
			http.Error(w, "failed to export orders", http.StatusInternalServerError)
			return
		}
		userList, err := accounts.ListUsers(r.Context())
		if err != nil {
			http.Error(w, "failed to export users", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="polycycle-backup.json"`)
		json.NewEncoder(w).Encode(map[string]any{
			"exported_at": time.Now().UTC(),
			"data": map[string]any{
				"products": productList,
				"orders":   orderList,
				"users":    userList,
			},
		})
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
