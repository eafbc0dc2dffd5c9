package main

import (
	"context"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"courier-market-service/internal/adapters/repositories"
	"courier-market-service/internal/config"
	"courier-market-service/internal/platform/db"
)

// dbtool prepares a postgres instance for the server: `init` creates the
// schema, `seed` additionally loads demo packages and routes.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	if len(os.Args) < 2 {
		usage()
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pool, err := db.Open(context.Background(), databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "init":
		log.Println("Initializing database schema...")
		if err := repositories.InitSchema(pool); err != nil {
			log.Fatalf("schema initialization failed: %v", err)
		}
		log.Println("Schema ready.")
	case "seed":
		log.Println("Initializing database schema...")
		if err := repositories.InitSchema(pool); err != nil {
			log.Fatalf("schema initialization failed: %v", err)
		}
		seedPath := config.Get("SEED_PATH", "data/seeds/packages.json")
		if len(os.Args) > 2 {
			seedPath = os.Args[2]
		}
		log.Printf("Seeding database from %s...", seedPath)
		if err := repositories.SeedFromJSON(pool, seedPath); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
		log.Println("Seeding complete.")
	default:
		usage()
	}
}

func usage() {
	log.Fatalf("usage: %s <init|seed> [seed-file]", os.Args[0])
}
