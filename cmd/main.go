package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"puzzle-lab/repositories"
	"puzzle-lab/runtime"
	"puzzle-lab/runtime/workers"
	"puzzle-lab/sink"
	"puzzle-lab/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close, final cell
// flush) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories & Shared State
	puzzles := repositories.NewPuzzleRepository(db, log)
	defer puzzles.Close()
	users := repositories.NewUserRepository(db)
	defer users.Close()

	store := runtime.NewCellStore(log, puzzles)
	defer func() {
		// Final flush of anything still pending in the cache.
		if err := store.Close(); err != nil {
			log.Error("Final flush failed", "error", err)
		}
	}()
	dispatcher := runtime.NewDispatcher(log)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background Workers Under Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewFlushWorker(log, store, config.FlushInterval))
	if config.JournalFilepath != "" {
		journalSub := runtime.NewSubscriber(log, config.BufferSize)
		dispatcher.Subscribe(journalSub)
		sup.Add(sink.NewJournal(log, journalSub, config.JournalFilepath))
	}
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 6. Websocket Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: ws.NewServer(log, store, users, dispatcher, config.BufferSize),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
