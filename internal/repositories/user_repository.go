package repositories

import (
	"context"

	"bakery/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDs returns the users that exist among ids; missing ones are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	// ListByRole returns users of a role, oldest first.
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
}
