package repository

import (
	"context"
	"errors"
	"time"

	"github.com/johny-c/lagom/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for manifest data access
type Repository interface {
	// Manifest operations
	GetManifest(ctx context.Context, id string) (*domain.Manifest, error)
	GetManifestByPath(ctx context.Context, path string) (*domain.Manifest, error)
	ListManifests(ctx context.Context) ([]*domain.Manifest, error)
	DeleteManifest(ctx context.Context, id string) error

	// ImportManifest stores a manifest with its requirements and findings,
	// replacing any previous import for the same path.
	ImportManifest(ctx context.Context, m *domain.Manifest, findings []*domain.Finding) error

	// Requirement operations
	ListRequirements(ctx context.Context, manifestID string) ([]*domain.Requirement, error)
	UpdateRequirementVerification(ctx context.Context, manifestID string, line int, status domain.VerifyStatus, at time.Time) error

	// Finding operations
	ListFindings(ctx context.Context, manifestID string, status domain.FindingStatus) ([]*domain.Finding, error)
	GetFinding(ctx context.Context, id string) (*domain.Finding, error)
	ResolveFinding(ctx context.Context, id, by string) error

	// Close releases resources
	Close() error
}
