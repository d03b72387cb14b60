package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fotobook/nft-engine/internal/admin"
	"github.com/fotobook/nft-engine/internal/auction"
	"github.com/fotobook/nft-engine/internal/bank"
	"github.com/fotobook/nft-engine/internal/events"
	"github.com/fotobook/nft-engine/internal/market"
	"github.com/fotobook/nft-engine/internal/metrics"
	"github.com/fotobook/nft-engine/internal/model"
	"github.com/fotobook/nft-engine/internal/registry"
	"github.com/fotobook/nft-engine/internal/store"
	"github.com/fotobook/nft-engine/internal/streak"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	adminAccount := os.Getenv("ADMIN_ACCOUNT")
	if adminAccount == "" {
		adminAccount = "admin"
	}

	streakInterval := 24 * time.Hour
	if v := os.Getenv("STREAK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid STREAK_INTERVAL", "err", err)
			os.Exit(1)
		}
		streakInterval = d
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// The native currency is always accepted.
	if err := st.SetCurrencyAllowed(context.Background(), model.NativeCurrency, true); err != nil {
		slog.Error("failed to allow native currency", "err", err)
		os.Exit(1)
	}

	// --- Notification hub ---
	hub := events.NewHub()
	go hub.Run()

	// --- Services, wired the way the contracts were deployed: registry
	// first, marketplace with a placeholder auction reference, auction
	// engine, then the back-references. ---
	bk := bank.New()
	regSvc := registry.NewService(st, hub)
	aucSvc := auction.NewService(st, regSvc, bk, hub, nil)
	mktSvc := market.NewService(st, regSvc, bk, hub, adminAccount, nil)
	strSvc := streak.NewService(st, adminAccount, streakInterval, nil, nil)

	if err := mktSvc.UpdateAuctionContract(adminAccount, aucSvc); err != nil {
		slog.Error("failed to wire auction contract", "err", err)
		os.Exit(1)
	}
	if err := strSvc.UpdateNftContract(adminAccount, regSvc); err != nil {
		slog.Error("failed to wire nft contract", "err", err)
		os.Exit(1)
	}

	adminHandler := admin.NewHandler(adminAccount, bk, mktSvc, strSvc, aucSvc, regSvc)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"nft-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time notifications.
		r.Get("/ws", hub.HandleWS)

		// Ownership registry.
		r.Post("/assets", regSvc.HandleMint)
		r.Get("/assets/{assetID}", regSvc.HandleGet)
		r.Get("/assets/{assetID}/history", regSvc.HandleHistory)
		r.Put("/assets/{assetID}/visibility", regSvc.HandleSetVisibility)
		r.Post("/assets/{assetID}/transfer", regSvc.HandleTransfer)

		// Auction engine.
		r.Post("/auctions", aucSvc.HandleStart)
		r.Get("/auctions/{assetID}", aucSvc.HandleQuery)
		r.Post("/auctions/{assetID}/bids", aucSvc.HandleBid)
		r.Post("/auctions/{assetID}/end", aucSvc.HandleEnd)

		// Marketplace.
		r.Post("/listings", mktSvc.HandleList)
		r.Get("/listings/{assetID}", mktSvc.HandleQuery)
		r.Post("/listings/{assetID}/buy", mktSvc.HandleBuy)
		r.Delete("/listings/{assetID}", mktSvc.HandleDelist)
		r.Get("/currencies/{currencyID}", mktSvc.HandleAllowedCurrency)

		// Leaderboard tracker.
		r.Post("/activity", strSvc.HandleRecordActivity)
		r.Get("/leaderboard", strSvc.HandleLeaderboard)

		// Balances.
		r.Get("/accounts/{accountID}/balances", adminHandler.HandleBalances)

		// Operator surface.
		r.Post("/admin/currencies", mktSvc.HandleAddToken)
		r.Post("/admin/credit", adminHandler.HandleCredit)
		r.Put("/admin/auction-contract", adminHandler.HandleUpdateAuctionContract)
		r.Put("/admin/nft-contract", adminHandler.HandleUpdateNftContract)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("nft-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down nft-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("nft-engine stopped")
}
