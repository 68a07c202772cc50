/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shop back-office server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Read environment config, then command-line flags (flags win)
  2. Initialize SQLite store
  3. Load the persisted account book and catalog
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

CONFIGURATION:
  Environment (prefix SHOP_):
    SHOP_PORT       HTTP server port (default: 8080)
    SHOP_DB_PATH    SQLite database path (default: shop.db)
  Flags:
    -port    Overrides SHOP_PORT
    -db      Overrides SHOP_DB_PATH; use ":memory:" for ephemeral runs

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Snapshot the book and catalog one last time
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/shop.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  SHOP_PORT=3000 ./server

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

	"github.com/kelseyhightower/envconfig"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/api"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/catalog"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/shop"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/store/sqlite"
)

type config struct {
	Port   int    `default:"8080"`
	DBPath string `default:"shop.db" split_words:"true"`
}

func main() {
	var cfg config
	if err := envconfig.Process("shop", &cfg); err != nil {
		log.Fatalf("Failed to read environment config: %v", err)
	}

	// Flags override the environment.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Rebuild the account book and catalog from the last snapshot.
	book, err := store.LoadBook(ctx)
	if err != nil {
		log.Fatalf("Failed to load account book: %v", err)
	}
	cat := catalog.NewMemory()
	products, err := store.LoadCatalog(ctx)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	for _, p := range products {
		if err := cat.Add(p); err != nil {
			log.Printf("Warning: skipping catalog row %q: %v", p.Code, err)
		}
	}
	log.Printf("Loaded %d operations, %d products, balance %s",
		len(book.GetAllTransactions()), len(products), book.GetBalance())

	sh := shop.New(book, cat)
	receipts, err := store.LoadReceipts(ctx)
	if err != nil {
		log.Fatalf("Failed to load receipts: %v", err)
	}
	sh.RestoreReceipts(receipts)
	handler := api.NewHandler(sh, cat, store)
	router := api.NewRouter(handler)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// One last snapshot so nothing recorded in-flight is lost.
	if err := store.SaveBook(shutdownCtx, sh.Book()); err != nil {
		log.Printf("Warning: final book snapshot failed: %v", err)
	}
	if err := store.SaveCatalog(shutdownCtx, cat.Products()); err != nil {
		log.Printf("Warning: final catalog snapshot failed: %v", err)
	}
	if err := store.SaveReceipts(shutdownCtx, sh.Receipts()); err != nil {
		log.Printf("Warning: final receipts snapshot failed: %v", err)
	}

	log.Println("Server stopped")
}
