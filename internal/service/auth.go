package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"makemodel/internal/apperr"
	"makemodel/internal/model"
	"makemodel/internal/store"
)

const minPasswordLength = 8

var errInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid email or password")

type AuthService struct {
	store store.Store
	now   func() time.Time
}

func NewAuthService(st store.Store) *AuthService {
	return &AuthService{store: st, now: time.Now}
}

type RegisterInput struct {
	Email    string
	Password string
	Nickname string
	Role     model.Role
}

// Register creates a brand or creator account. Admins are provisioned out of
// band.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	details := map[string]string{}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		details["email"] = "must be a valid email address"
	}
	if len(in.Password) < minPasswordLength {
		details["password"] = fmt.Sprintf("must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(in.Nickname) == "" {
		details["nickname"] = "is required"
	}
	if in.Role != model.RoleBrand && in.Role != model.RoleCreator {
		details["role"] = "must be one of brand, creator"
	}
	if len(details) > 0 {
		return nil, apperr.New(apperr.KindValidation, "invalid registration").WithDetails(details)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Nickname:     strings.TrimSpace(in.Nickname),
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.New(apperr.KindConflict, "email already registered")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) User(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
