package repositories

import (
	"context"

	"diglab-api/internal/adapters/persistence/models"
)

// PersonRepository defines person registry access
type PersonRepository interface {
	Create(ctx context.Context, person *models.Person) error
	GetByPersonnummer(ctx context.Context, pnr string) (*models.Person, error)
	ExistsByPersonnummer(ctx context.Context, pnr string) (bool, error)
	UpdateContact(ctx context.Context, pnr string, fields map[string]interface{}) error
	Search(ctx context.Context, query string, limit int) ([]*models.Person, error)
}

// OrderRepository defines order store access
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByLabNumber(ctx context.Context, lab string) (*models.Order, error)
	ExistsByLabNumber(ctx context.Context, lab string) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Order, error)
	SetRequisitionPath(ctx context.Context, id uint, path string) error
	SetResultsPath(ctx context.Context, id uint, path string) error
	ReplaceResults(ctx context.Context, orderID uint, rows []models.OrderResult, anyOverridden bool) error
}

// UserRepository defines staff account access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByWorkerID(ctx context.Context, workerID string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}
