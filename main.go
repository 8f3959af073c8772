package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/kioku/internal/database"
	"github.com/example/kioku/internal/engine"
	"github.com/example/kioku/internal/importer"
	"github.com/example/kioku/internal/notify"
	"github.com/example/kioku/internal/scheduler"
	"github.com/example/kioku/internal/syncer"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/kioku.db"
	}
	localDB, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open local database: %v", err)
	}
	defer localDB.Close()
	local := database.NewRepos(localDB)

	// The remote store is optional: without it the engine runs
	// offline-only and the local store stays authoritative.
	var remote syncer.Store
	if dsn := os.Getenv("REMOTE_DB_URL"); dsn != "" {
		remoteDB, err := database.OpenRemote(dsn)
		if err != nil {
			log.Printf("Remote database unavailable, running offline: %v", err)
		} else {
			defer remoteDB.Close()
			remote = database.NewScheduleRepository(remoteDB)
		}
	}

	coordinator := syncer.New(local.Schedules, remote)
	eng := engine.New(local, coordinator, time.Now)

	// One-shot deck import on startup when requested.
	if deck := os.Getenv("DECK_IMPORT_FILE"); deck != "" {
		userID, err := strconv.ParseInt(os.Getenv("DECK_IMPORT_USER"), 10, 64)
		if err != nil {
			log.Fatalf("DECK_IMPORT_FILE requires a numeric DECK_IMPORT_USER: %v", err)
		}
		config := importer.DefaultImportConfig()
		config.FilePath = deck
		result, err := eng.ImportDeck(ctx, userID, config)
		if err != nil {
			log.Fatalf("Failed to import deck: %v", err)
		}
		log.Printf("Imported deck %s: %d created, %d skipped, %d errors",
			deck, result.Created, result.Skipped, len(result.Errors))
	}

	// Reminder notifications are optional too.
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		notifier, err := notify.NewTelegramNotifier(token)
		if err != nil {
			log.Fatalf("Failed to create notifier: %v", err)
		}
		sched := scheduler.New(notifier, local.Users, local.Schedules, local.History)
		sched.Start()
		defer sched.Stop()
	}

	// Periodically reconcile offline progress with the remote store.
	if remote != nil {
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					users, err := local.Users.GetAll(ctx)
					if err != nil {
						log.Printf("Error listing users for sync: %v", err)
						continue
					}
					for _, user := range users {
						if err := eng.Reconcile(ctx, user.ID); err != nil {
							log.Printf("Error reconciling user %d: %v", user.ID, err)
						}
					}
				case <-ctx.Done():
					log.Println("Stopping sync loop...")
					return
				}
			}
		}()
	}

	log.Println("Engine started. Press Ctrl+C to stop.")
	sig := <-sigChan
	log.Printf("Received signal: %v", sig)
	cancel()
	log.Println("Engine stopped")
}
