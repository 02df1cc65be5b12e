package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/boosthive/boosthive/internal/config"
	"github.com/boosthive/boosthive/internal/db"
)

// promote_moderator sets a user's role to 'moderator' by email.
// Usage:
//
//	go run cmd/adminutil/promote_moderator/main.go -email user@example.com
func main() {
	email := flag.String("email", "", "Email of the user to promote to moderator")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run cmd/adminutil/promote_moderator/main.go -email user@example.com")
	}

	cfg := config.Load()
	db.Init(cfg.DatabaseURL())

	ct, err := db.Conn.Exec(context.Background(),
		`UPDATE users SET role = 'moderator' WHERE email = $1`, *email)
	if err != nil {
		log.Fatalf("failed to promote user to moderator: %v", err)
	}
	if ct.RowsAffected() == 0 {
		log.Fatalf("no user found with email: %s", *email)
	}

	fmt.Printf("User %s promoted to moderator.\n", *email)
}
