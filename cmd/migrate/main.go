package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var (
		dsn           string
		migrationsDir string
		direction     string
		steps         int
	)

	flag.StringVar(&dsn, "dsn", "", "PostgreSQL connection string (required)")
	flag.StringVar(&migrationsDir, "migrations", "store/postgres/migrations", "Directory containing migration files")
	flag.StringVar(&direction, "direction", "up", "Migration direction: up, down or steps")
	flag.IntVar(&steps, "steps", 0, "Number of steps to apply when -direction=steps (negative rolls back)")
	flag.Parse()

	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
		if dsn == "" {
			dsn = os.Getenv("POSTGRES_DSN")
		}
		if dsn == "" {
			log.Fatal("database connection string is required: provide via -dsn flag or DATABASE_DSN/POSTGRES_DSN environment variable")
		}
	}

	migrationsURL := fmt.Sprintf("file://%s", migrationsDir)
	log.Printf("using migrations from: %s", migrationsURL)

	m, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		log.Fatalf("failed to initialize migrator: %v", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Printf("warning: closing migration source: %v", srcErr)
		}
		if dbErr != nil {
			log.Printf("warning: closing migration database handle: %v", dbErr)
		}
	}()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		if steps == 0 {
			log.Fatal("-steps must be non-zero when -direction=steps")
		}
		err = m.Steps(steps)
	default:
		log.Fatalf("unknown direction %q: must be up, down or steps", direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("no change: schema already up to date")
		return
	}
	log.Printf("migration %q applied successfully", direction)
}
