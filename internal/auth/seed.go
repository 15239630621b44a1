package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

const generatedPasswordBytes = 16

// SeedAdmin creates the first admin account when the users table is empty.
// An empty password is replaced by a random one, which is logged once and
// returned. Returns "" when seeding was skipped.
func SeedAdmin(ctx context.Context, users UserRepository, username, password string, logger *slog.Logger) (string, error) {
	n, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if n > 0 {
		logger.Debug("users exist, skipping admin seed")
		return "", nil
	}

	if username == "" {
		username = "admin"
	}
	generated := password == ""
	if generated {
		b := make([]byte, generatedPasswordBytes)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generating admin password: %w", err)
		}
		password = hex.EncodeToString(b)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing admin password: %w", err)
	}

	admin := &User{
		Username:     username,
		DisplayName:  "Administrator",
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
		CreatedBy:    "seed",
	}
	if err := users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating admin account: %w", err)
	}

	if generated {
		logger.Warn("admin account created with generated password",
			"username", username,
			"password", password,
			"action_required", "change this password after first login",
		)
	} else {
		logger.Info("admin account created", "username", username)
	}
	return password, nil
}
