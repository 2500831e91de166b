package main

import (
	"log"
	"os"

	"freelance-billing/internal/config"
	"freelance-billing/internal/db"
)

// Usage: migrate [up|down]
func main() {
	cfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		version, err := db.Migrate(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[MIGRATE] %v", err)
		}
		log.Printf("[DONE] Schema at version %d.", version)
	case "down":
		if err := db.Rollback(cfg.DatabaseURL); err != nil {
			log.Fatalf("[ROLLBACK] %v", err)
		}
		log.Println("[DONE] Rolled back one migration.")
	default:
		log.Fatalf("unknown command %q (want up or down)", cmd)
	}
}
