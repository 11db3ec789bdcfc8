package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-user-service/config"
	"github.com/oksasatya/go-user-service/pkg/helpers"
)

// Seeds the first admin account. The last-admin protection assumes at least
// one ADMIN row exists; this creates it.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := getenvDefault("ADMIN_EMAIL", "admin@example.com")
	password := getenvDefault("ADMIN_PASSWORD", "Admin123!")
	name := getenvDefault("ADMIN_NAME", "Administrator")

	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, name, role)
		VALUES ($1, $2, $3, 'ADMIN')
		ON CONFLICT (email) DO UPDATE SET role = 'ADMIN', updated_at = now()
		RETURNING id
	`, email, hash, name).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: id=%s email=%s name=%s\n", id, email, name)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
