// Command changerole promotes or demotes a user's role from the terminal.
// It is deliberately interactive: the operator sees the current record and
// must confirm before anything is written.
//
// Exit codes: 0 on success or operator cancellation, 1 on any failure.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-service/config"
	userapp "github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/domain/entity"
	repo "github.com/oksasatya/go-user-service/internal/domain/repository"
	pginfra "github.com/oksasatya/go-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-service/pkg/apperr"
)

var validRoles = []entity.Role{entity.RoleUser, entity.RoleAdmin}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard) // service logging is noise in an interactive tool

	users := pginfra.NewUserRepository(pool)
	audit := pginfra.NewAuditRepository(pool)
	svc := userapp.NewService(users, audit, nil, logger, nil, "")

	if err := run(ctx, os.Stdin, users, svc); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, users repo.UserRepository, svc *userapp.Service) error {
	r := bufio.NewReader(in)

	email, err := prompt(r, "Enter user email: ")
	if err != nil {
		return err
	}

	u, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errors.New("user not found")
		}
		return err
	}

	fmt.Println("\nCurrent user info:")
	fmt.Println("------------------")
	fmt.Printf("Name: %s\n", u.Name)
	fmt.Printf("Email: %s\n", u.Email)
	fmt.Printf("Current Role: %s\n", u.Role)
	fmt.Printf("\nAvailable roles: %s\n", rolesList())

	roleStr, err := prompt(r, "\nEnter new role: ")
	if err != nil {
		return err
	}
	newRole := entity.Role(strings.ToUpper(roleStr))
	if !newRole.Valid() {
		return fmt.Errorf("invalid role, must be one of: %s", rolesList())
	}

	confirm, err := prompt(r, fmt.Sprintf("\nAre you sure you want to change %s's role from %s to %s? (y/N): ", u.Email, u.Role, newRole))
	if err != nil {
		return err
	}
	if !strings.EqualFold(confirm, "y") {
		fmt.Println("Operation cancelled")
		return nil
	}

	updated, err := svc.ChangeRole(ctx, u.Email, newRole)
	if err != nil {
		if apperr.IsType(err, apperr.TypeNotFound) {
			return errors.New("user not found")
		}
		return err
	}

	fmt.Println("\nUser role updated successfully!")
	fmt.Println("------------------")
	fmt.Printf("Name: %s\n", updated.Name)
	fmt.Printf("Email: %s\n", updated.Email)
	fmt.Printf("New Role: %s\n", updated.Role)
	return nil
}

func prompt(r *bufio.Reader, q string) (string, error) {
	fmt.Print(q)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func rolesList() string {
	parts := make([]string, len(validRoles))
	for i, role := range validRoles {
		parts[i] = role.String()
	}
	return strings.Join(parts, ", ")
}
