package postgres

import (
	"context"
	"errors"
	"fmt"

	"makemodel/internal/model"
	"makemodel/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, nickname, role, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Nickname, string(u.Role), u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}
	return nil
}

func (s *Store) userBy(ctx context.Context, column, value string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, nickname, role, password_hash, created_at FROM users WHERE `+column+` = $1`, value,
	).Scan(&u.ID, &u.Email, &u.Nickname, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", classify(err))
	}
	return &u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userBy(ctx, "email", email)
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.userBy(ctx, "id", id)
}

func (s *Store) ModelExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM ai_models WHERE id = $1)`, id).Scan(&exists); err != nil {
		if errors.Is(classify(err), store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check model: %w", err)
	}
	return exists, nil
}
