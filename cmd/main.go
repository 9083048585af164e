package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mesabook/cuadre/internal/cuadre"
	"github.com/mesabook/cuadre/internal/httpapi"
	"github.com/mesabook/cuadre/internal/storage/memory"
	pgstore "github.com/mesabook/cuadre/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	var srvMux http.Handler
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		// Use Postgres store when DATABASE_URL is provided
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = func() { pg.Close() }
		// Optional dev seed for compose/local
		if dev := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED"))); dev == "1" || dev == "true" || dev == "yes" {
			z, invs, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", z, invs)
				printDevSeedBanner(z, invs)
			}
		}
		srvMux = httpapi.New(pg, pg, logger).Handler()
		logger.Info("storage backend: postgres")
	} else {
		// Default to in-memory store with a small dev seed
		store := memory.New()
		z, invs := seedMemory(store)
		logDevSeed(logger, "memory", z, invs)
		printDevSeedBanner(z, invs)
		srvMux = httpapi.New(store, store, logger).Handler()
		logger.Info("storage backend: memory")
	}

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           srvMux,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cuadre service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// seedMemory populates one demo trading day: a Z report, two matched invoices
// and one orphan, so every workspace flow can be exercised out of the box.
func seedMemory(store *memory.Store) (cuadre.ZReport, []cuadre.Invoice) {
	date := cuadre.TradingDate(time.Now())
	z := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(8500), DocumentRef: "Z-0001"}
	store.SeedZReport(z)
	zid := z.ID
	invs := []cuadre.Invoice{
		{ID: uuid.New(), Date: date, IssuedAt: date.Add(13 * time.Hour), Amount: cuadre.AmountFromMinor(5200), PaymentMethod: "tarjeta", Table: "M3", ZReportID: &zid},
		{ID: uuid.New(), Date: date, IssuedAt: date.Add(14 * time.Hour), Amount: cuadre.AmountFromMinor(3300), PaymentMethod: "efectivo", Table: "M7", ZReportID: &zid},
		{ID: uuid.New(), Date: date, IssuedAt: date.Add(15 * time.Hour), Amount: cuadre.AmountFromMinor(1800), PaymentMethod: "bizum"},
	}
	for _, inv := range invs {
		store.SeedInvoice(inv)
	}
	return z, invs
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, z cuadre.ZReport, invs []cuadre.Invoice) {
	ids := make([]string, 0, len(invs))
	for _, inv := range invs {
		ids = append(ids, inv.ID.String())
	}
	l.Info("DEV seed ("+backend+")", "zreport_id", z.ID.String(), "date", z.Date.Format(time.DateOnly), "invoice_ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(z cuadre.ZReport, invs []cuadre.Invoice) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("zreport_id: %s\n", z.ID.String())
	fmt.Printf("date: %s\n", z.Date.Format(time.DateOnly))
	for _, inv := range invs {
		tag := "assigned"
		if inv.ZReportID == nil {
			tag = "orphan"
		}
		fmt.Printf("invoice_id (%s): %s\n", tag, inv.ID.String())
	}
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
