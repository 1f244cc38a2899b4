// Package users provides durable storage for user identity records.
package users

import (
	"context"

	"github.com/dmitrijs2005/linkdeck/internal/server/models"
)

// Repository is the server's user store. Implementations return
// common.ErrorNotFound for absent rows and common.ErrorAlreadyExists
// for duplicate emails.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, name, avatar *string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string) error
}
