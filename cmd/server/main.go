/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the back office server: SQLite store, HTTP API,
  and the recurring task generation scheduler.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Start the generation scheduler (immediate run + periodic)
  5. Start HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: backoffice.db)
                   Use ":memory:" for an in-memory database
  -generate-every  Generation cadence (default: 24h)
  -fiscal-start    Fiscal year start month 1-12 (default: 7)
  -no-scheduler    Disable the periodic trigger (manual runs only)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler and wait for an in-flight firing
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Generation scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/compliance-engine/api"
	"github.com/warp/compliance-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "backoffice.db", "SQLite database path")
	generateEvery := flag.Duration("generate-every", 24*time.Hour, "generation cadence")
	fiscalStart := flag.Int("fiscal-start", 7, "fiscal year start month (1-12)")
	noScheduler := flag.Bool("no-scheduler", false, "disable the periodic generation trigger")
	flag.Parse()

	if *fiscalStart < 1 || *fiscalStart > 12 {
		log.Fatalf("Invalid -fiscal-start %d: must be 1-12", *fiscalStart)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)
	handler.Generator.Periods.FiscalYearStart = time.Month(*fiscalStart)

	// Start the generation scheduler
	scheduler := api.NewGenerationScheduler(handler.Generator)
	scheduler.Interval = *generateEvery
	scheduler.Enabled = !*noScheduler
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
