package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
)

const signingSecretKey = "jwt_signing_secret"

// SetSetting upserts a key-value pair in the settings table.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, s.db,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetSetting returns the value for a setting key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.queryRow(ctx, s.db, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SigningSecret returns the persisted token signing secret, generating
// and storing one on first use so tokens survive restarts.
func (s *Store) SigningSecret(ctx context.Context) ([]byte, error) {
	secret, err := s.GetSetting(ctx, signingSecretKey)
	if err != nil {
		return nil, err
	}
	if secret != "" {
		return []byte(secret), nil
	}
	secret, err = generateToken()
	if err != nil {
		return nil, err
	}
	if err := s.SetSetting(ctx, signingSecretKey, secret); err != nil {
		return nil, err
	}
	slog.Info("generated token signing secret")
	return []byte(secret), nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
