package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slimecraft/shop/internal/auth"
	"github.com/slimecraft/shop/internal/cart"
	"github.com/slimecraft/shop/internal/catalog"
	"github.com/slimecraft/shop/internal/checkout"
	"github.com/slimecraft/shop/internal/customer"
	"github.com/slimecraft/shop/internal/db"
	"github.com/slimecraft/shop/internal/events"
	"github.com/slimecraft/shop/internal/httpapi"
	"github.com/slimecraft/shop/internal/order"
	"github.com/slimecraft/shop/internal/sequence"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatalf("db migrate: %v", err)
		}
	}

	// --- repositories ---
	seqRepo := sequence.NewRepository()
	products := catalog.NewPostgresRepository(pool)
	customers := customer.NewPostgresRepository(pool)
	orders := order.NewPostgresRepository(pool, order.NewReferenceAllocator(seqRepo, cfg.RefAttempts))

	// --- audit trail ---
	sinks := []auth.AuditSink{auth.NewPostgresAuditStore(pool)}
	if cfg.AMQPURL != "" {
		conn, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatalf("amqp connect: %v", err)
		}
		defer conn.Close()

		pub, err := events.NewAuditPublisher(conn, "shop")
		if err != nil {
			logger.Fatalf("audit publisher: %v", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	audit := auth.NewAsyncSink(auth.NewFanoutSink(sinks...), cfg.AuditBuffer, logger)
	defer audit.Close()

	// --- domain services ---
	guard := auth.NewGuard(auth.NewPostgresAdminStore(pool), auth.NewPostgresWindowStore(pool), audit, logger)
	sessions := auth.NewSessions(cfg.SessionTTL)
	carts := cart.NewStore()
	processor := checkout.NewProcessor(checkout.NewPostgresStore(pool, customers, products, orders))

	// stale windows can never match again; clean them out periodically
	go func() {
		ticker := time.NewTicker(cfg.WindowPurgeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := guard.PurgeStaleWindows(ctx, cfg.WindowRetention); err != nil {
					logger.Printf("purge login windows: %v", err)
				} else if n > 0 {
					logger.Printf("purged %d stale login windows", n)
				}
			}
		}
	}()

	// --- HTTP ---
	h := httpapi.NewHandler(logger, carts, products, orders, customers, processor, guard, sessions)
	r := httpapi.NewRouter(h)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("shutdown signal: %s", sig)
	case err := <-errCh:
		logger.Printf("fatal error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	logger.Printf("shutdown complete")
}
