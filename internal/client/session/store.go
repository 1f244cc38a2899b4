package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/linkdeck/internal/client/models"
	"github.com/dmitrijs2005/linkdeck/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/linkdeck/internal/dbx"
)

// Metadata keys under which the session is persisted. The three values are
// written together in one transaction so a session is either fully present
// or absent.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
)

// Store persists the authenticated session in the local database.
type Store struct {
	db   *sql.DB
	repo metadata.Repository
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, repo: metadata.NewSQLiteRepository(db)}
}

// Load reads the persisted session. If any of the three values is missing
// the remainder is discarded and (nil, nil, nil) is returned: a partial
// session is never restored.
func (s *Store) Load(ctx context.Context) (*models.User, *models.TokenPair, error) {
	access, err := s.repo.Get(ctx, keyAccessToken)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.repo.Get(ctx, keyRefreshToken)
	if err != nil {
		return nil, nil, err
	}
	rawUser, err := s.repo.Get(ctx, keyUser)
	if err != nil {
		return nil, nil, err
	}

	if len(access) == 0 || len(refresh) == 0 || len(rawUser) == 0 {
		if err := s.Clear(ctx); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}

	var user models.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		// Unreadable state is treated the same as missing state.
		if err := s.Clear(ctx); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}

	return &user, &models.TokenPair{
		AccessToken:  string(access),
		RefreshToken: string(refresh),
	}, nil
}

// Save persists the full session atomically.
func (s *Store) Save(ctx context.Context, user *models.User, pair *models.TokenPair) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAccessToken, []byte(pair.AccessToken)); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyRefreshToken, []byte(pair.RefreshToken)); err != nil {
			return err
		}
		return repo.Set(ctx, keyUser, rawUser)
	})
}

// SaveUser updates only the cached user profile, leaving tokens untouched.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	return s.repo.Set(ctx, keyUser, rawUser)
}

// Clear removes the persisted session.
func (s *Store) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for _, key := range []string{keyAccessToken, keyRefreshToken, keyUser} {
			if err := repo.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}
