// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, profile updates, and
// issuing/refreshing the access+refresh token pair.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/server/models"
	"github.com/dmitrijs2005/linkdeck/internal/server/repositories/users"
	"github.com/dmitrijs2005/linkdeck/internal/server/token"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserService provides authentication-related operations:
//   - Register: create users and mint the first token pair
//   - Login: verify credentials and mint tokens
//   - Refresh: verify a refresh token and rotate the whole pair
//   - GetUser / UpdateProfile / ChangePassword: account maintenance
type UserService struct {
	repo       users.Repository
	codec      *token.Codec
	bcryptCost int
}

// NewUserService constructs a UserService over the given store and codec.
func NewUserService(repo users.Repository, codec *token.Codec, bcryptCost int) *UserService {
	return &UserService{repo: repo, codec: codec, bcryptCost: bcryptCost}
}

// Register validates the email/password, creates the account, and returns
// the stored user together with a fresh token pair.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, *TokenPair, error) {
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}
	if !emailPattern.MatchString(email) {
		return nil, nil, fmt.Errorf("%w: invalid email format", common.ErrorValidation)
	}
	if len(password) < 6 {
		return nil, nil, fmt.Errorf("%w: password must be at least 6 characters", common.ErrorValidation)
	}
	if len(password) > 100 {
		return nil, nil, fmt.Errorf("%w: password must be at most 100 characters", common.ErrorValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.repo.Create(ctx, &models.User{Email: email, PasswordHash: string(hash), Name: name})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, nil, common.ErrorAlreadyExists
		}
		return nil, nil, fmt.Errorf("creating user: %w", err)
	}

	pair, err := s.mintPair(user)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}
	return user, pair, nil
}

// Login verifies the email/password combination. Unknown email and wrong
// password are indistinguishable to the caller; inactive accounts are
// reported separately.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if !user.IsActive {
		return nil, nil, common.ErrorAccountInactive
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, nil, common.ErrorInternal
	}

	pair, err := s.mintPair(user)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}
	return user, pair, nil
}

// Refresh validates a refresh token and rotates the pair. An invalid or
// expired refresh token yields common.ErrRefreshTokenExpired; the account
// must still exist and be active.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if !user.IsActive {
		return nil, nil, common.ErrorAccountInactive
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, nil, common.ErrorInternal
	}

	pair, err := s.mintPair(user)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}
	return user, pair, nil
}

// GetUser loads the current user record by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies a partial update of name and/or avatar. A patch with
// no fields is a validation error.
func (s *UserService) UpdateProfile(ctx context.Context, id string, name, avatar *string) (*models.User, error) {
	if name == nil && avatar == nil {
		return nil, fmt.Errorf("%w: nothing to update", common.ErrorValidation)
	}
	return s.repo.UpdateProfile(ctx, id, name, avatar)
}

// ChangePassword verifies the current password and stores a hash of the new
// one. A wrong current password is a validation error, not an auth failure:
// the caller is already authenticated.
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: current and new passwords are required", common.ErrorValidation)
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: new password must be at least 8 characters", common.ErrorValidation)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return fmt.Errorf("%w: current password is incorrect", common.ErrorValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, id, string(hash))
}

func (s *UserService) mintPair(user *models.User) (*TokenPair, error) {
	access, err := s.codec.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
