/*
main.go - Reporting server entry point

PURPOSE:
  Initializes and starts the attendance reconciliation reporting server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Load the holiday calendar (file or built-in default)
  4. Create API handler and router
  5. Start the periodic scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: attendance.db)
              Use ":memory:" for in-memory database
  -calendar   Path to a holiday calendar JSON file (default: built-in)
  -capacity   Batch writer capacity for triggered runs
  -interval   Scheduler interval (default: 24h, 0 disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/attendance.db"

  # Run with a custom calendar, no scheduler
  ./server -calendar=./calendar.json -interval=0

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "attendance.db", "SQLite database path")
	calendarPath := flag.String("calendar", "", "Holiday calendar JSON file (empty for built-in)")
	capacity := flag.Int("capacity", 0, "Batch writer capacity (0 for default)")
	interval := flag.Duration("interval", 24*time.Hour, "Scheduler interval (0 disables)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Load holiday calendar
	cal := factory.DefaultCalendar()
	if *calendarPath != "" {
		data, err := os.ReadFile(*calendarPath)
		if err != nil {
			log.Fatalf("Failed to read calendar file: %v", err)
		}
		cal, err = factory.ParseCalendar(string(data))
		if err != nil {
			log.Fatalf("Failed to parse calendar file: %v", err)
		}
	}
	log.Printf("[Server] Calendar loaded: %d holidays, rest day %v", len(cal.Holidays), cal.RestDay)

	// Initialize handler
	handler := api.NewHandler(store, cal)
	if *capacity > 0 {
		handler.Capacity = *capacity
	}

	// Create router
	router := api.NewRouter(handler)

	// Start periodic reconciliation
	scheduler := api.NewScheduler(handler)
	if *interval > 0 {
		scheduler.CheckInterval = *interval
	} else {
		scheduler.Enabled = false
	}
	scheduler.Start()

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
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
