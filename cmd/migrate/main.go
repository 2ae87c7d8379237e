package main

import (
	"context"
	"log"
	"os"
	"time"

	"rankstat/adapters/postgres"
	"rankstat/internal/migration"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <postgres|sqlite3> <dsn>")
	}

	driver := os.Args[1]
	dsn := os.Args[2]
	if driver != "postgres" && driver != "sqlite3" {
		log.Fatalf("Unsupported driver %q", driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log.Printf("Applying result store schema %s (%s)", migration.NewRunner().Version(), driver)

	// Connect applies every migration step
	db, err := postgres.Connect(ctx, driver, dsn)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	defer db.Close()

	log.Println("Migration complete")
}
