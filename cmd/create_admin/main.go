package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"photoquest/internal/config"
	"photoquest/internal/db"
	"photoquest/internal/logger"
	"photoquest/internal/repository"
	"photoquest/internal/service"
)

// Creates or promotes the admin account and prints a token for it.
// The password is read from ADMIN_PASSWORD.
func main() {
	email := flag.String("email", "admin@photoquest.local", "admin email")
	name := flag.String("name", "Admin", "display name")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		logger.Fatal("ADMIN_PASSWORD not set")
	}

	pool := db.Connect(cfg.DatabaseURL)
	defer pool.Close()

	auth, err := service.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("jwt setup failed", "error", err)
	}

	users := repository.NewUserRepository(pool)
	audit := service.NewAuditService(repository.NewAuditRepository(pool))
	svc := service.NewAuthService(users, auth, audit)

	ctx := context.Background()
	u, err := svc.EnsureAdmin(ctx, *email, password, *name)
	if err != nil {
		logger.Fatal("ensure admin failed", "error", err)
	}

	token, err := svc.IssueToken(u)
	if err != nil {
		logger.Fatal("issue token failed", "error", err)
	}

	logger.Info("admin ready", "id", u.ID, "email", u.Email)
	fmt.Println(token)
}
