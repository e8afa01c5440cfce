package storage

import (
	"context"
	"errors"

	"github.com/terra-clan/compete-engine/internal/models"
)

// ErrNotFound is returned when a competition does not exist
var ErrNotFound = errors.New("competition not found")

// Repository defines the interface for competition persistence
type Repository interface {
	UpsertCompetition(ctx context.Context, c *models.Competition) error
	UpsertCompetitions(ctx context.Context, competitions []models.Competition) (int, error)
	GetCompetition(ctx context.Context, id string) (*models.Competition, error)
	ListCompetitions(ctx context.Context, q models.CatalogQuery) ([]models.Competition, error)
	DeleteCompetition(ctx context.Context, id string) error

	// Competitions returns the full catalog, earliest start first
	Competitions(ctx context.Context) ([]models.Competition, error)

	Ping(ctx context.Context) error
	Close() error
}
