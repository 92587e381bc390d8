package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// EnsureRootUser bootstraps an empty store with a root user and a personal
// account owned by it. The generated password is surfaced exactly once,
// through the log. Running against a non-empty store is a no-op, so the
// operation is idempotent across restarts.
func EnsureRootUser(ctx context.Context, s Store, logger *slog.Logger) error {
	exists, err := s.HasAnyUsers(ctx)
	if err != nil {
		return fmt.Errorf("checking for existing users: %w", err)
	}
	if exists {
		return nil
	}

	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return fmt.Errorf("generating root password: %w", err)
	}
	password := hex.EncodeToString(raw[:])

	user, err := NewUser("root", password)
	if err != nil {
		return fmt.Errorf("creating root user: %w", err)
	}
	if err := s.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("storing root user: %w", err)
	}

	logger.Info("user root created", "password", password)

	account := NewAccount("root", true, false)
	if err := s.CreateAccount(ctx, account); err != nil {
		return fmt.Errorf("storing root account: %w", err)
	}
	if err := s.AttachAccountToUser(ctx, account.ID, user.ID, AccessOwner); err != nil {
		return fmt.Errorf("attaching root account: %w", err)
	}

	return nil
}
