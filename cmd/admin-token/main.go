package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/college-admin/backend/internal/auth"
	"github.com/college-admin/backend/internal/config"
	"github.com/college-admin/backend/internal/db"
	"github.com/college-admin/backend/internal/models"
	"github.com/college-admin/backend/internal/rbac"
	"github.com/college-admin/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// admin-token prints a signed session token for an existing admin.
//
//	admin-token <user-id|email>
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: admin-token <user-id|email>")
		os.Exit(2)
	}

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	user, err := lookup(ctx, repositories.NewUserRepo(pool), os.Args[1])
	if err != nil {
		log.Fatal("user lookup failed", zap.String("user", os.Args[1]), zap.Error(err))
	}
	if !rbac.CanWrite(user.Role) {
		log.Fatal("user is not an admin", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	}

	token, err := auth.GenerateJWT(cfg.JWTSecret, user.ID, user.Role, cfg.JWTExpiration)
	if err != nil {
		log.Fatal("failed to sign token", zap.Error(err))
	}
	log.Info("issued admin token",
		zap.String("user_id", user.ID.String()),
		zap.Duration("expires_in", cfg.JWTExpiration),
	)
	fmt.Println(token)
}

func lookup(ctx context.Context, users *repositories.UserRepo, arg string) (*models.User, error) {
	if strings.Contains(arg, "@") {
		return users.GetByEmail(ctx, arg)
	}
	id, err := uuid.Parse(arg)
	if err != nil {
		return nil, fmt.Errorf("not a user id or email: %w", err)
	}
	return users.GetByID(ctx, id)
}
