package store

import (
	"context"

	"github.com/google/uuid"

	"bookcal/backend/internal/domain"
)

type ProviderRepository interface {
	// Create inserts a new provider; a duplicate email or sharable id
	// surfaces as ErrConflict.
	Create(ctx context.Context, p domain.Provider) (domain.Provider, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.Provider, error)
	FindByEmail(ctx context.Context, email string) (domain.Provider, error)
	FindBySharableID(ctx context.Context, sharableID string) (domain.Provider, error)
	UpdateSharableID(ctx context.Context, id uuid.UUID, sharableID string) error

	// List returns every provider; used by the monthly generation batch.
	List(ctx context.Context) ([]domain.Provider, error)
}
