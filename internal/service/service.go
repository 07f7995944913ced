// Package service provides the business logic tying manifest parsing,
// linting, and persistence together.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/johny-c/lagom/internal/domain"
	"github.com/johny-c/lagom/internal/lint"
	"github.com/johny-c/lagom/internal/reqfile"
	"github.com/johny-c/lagom/internal/repository"
)

// LintSummary reports the outcome of loading and linting one manifest
type LintSummary struct {
	ManifestID   string `json:"manifest_id"`
	Path         string `json:"path,omitempty"`
	Requirements int    `json:"requirements"`
	Errors       int    `json:"errors"`
	Warnings     int    `json:"warnings"`
}

// ManifestService provides business logic for manifest operations
type ManifestService struct {
	repo     repository.Repository
	linter   *lint.Linter
	eventBus *EventBus
	logger   *zap.Logger
}

// NewManifestService creates a new manifest service
func NewManifestService(repo repository.Repository, linter *lint.Linter, eventBus *EventBus, logger *zap.Logger) *ManifestService {
	return &ManifestService{
		repo:     repo,
		linter:   linter,
		eventBus: eventBus,
		logger:   logger,
	}
}

// LoadFile reads a manifest file, lints it, and stores the result,
// replacing any earlier import of the same path.
func (s *ManifestService) LoadFile(ctx context.Context, path string) (*domain.Manifest, *LintSummary, error) {
	m, err := reqfile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	m.ID = uuid.NewString()

	findings := s.linter.Run(m)
	if err := s.repo.ImportManifest(ctx, m, findings); err != nil {
		return nil, nil, err
	}

	summary := summarize(m, findings)
	s.logger.Info("manifest loaded",
		zap.String("path", path),
		zap.Int("requirements", summary.Requirements),
		zap.Int("errors", summary.Errors),
		zap.Int("warnings", summary.Warnings))

	s.eventBus.Publish(Event{Type: EventManifestLoaded, Payload: summary})
	s.eventBus.Publish(Event{Type: EventLintCompleted, Payload: summary})

	return m, summary, nil
}

// LintBytes parses and lints manifest content without storing anything
func (s *ManifestService) LintBytes(data []byte) (*domain.Manifest, []*domain.Finding, error) {
	m, err := reqfile.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return m, s.linter.Run(m), nil
}

// GetManifest retrieves a manifest by ID
func (s *ManifestService) GetManifest(ctx context.Context, id string) (*domain.Manifest, error) {
	return s.repo.GetManifest(ctx, id)
}

// ListManifests returns all stored manifests
func (s *ManifestService) ListManifests(ctx context.Context) ([]*domain.Manifest, error) {
	return s.repo.ListManifests(ctx)
}

// DeleteManifest removes a manifest and everything attached to it
func (s *ManifestService) DeleteManifest(ctx context.Context, id string) error {
	if err := s.repo.DeleteManifest(ctx, id); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventManifestDeleted,
		Payload: map[string]string{"manifest_id": id},
	})
	return nil
}

// Requirements returns the stored requirements of a manifest
func (s *ManifestService) Requirements(ctx context.Context, manifestID string) ([]*domain.Requirement, error) {
	return s.repo.ListRequirements(ctx, manifestID)
}

// Findings returns findings for a manifest, optionally filtered by status
func (s *ManifestService) Findings(ctx context.Context, manifestID string, status domain.FindingStatus) ([]*domain.Finding, error) {
	return s.repo.ListFindings(ctx, manifestID, status)
}

// ResolveFinding marks a finding resolved
func (s *ManifestService) ResolveFinding(ctx context.Context, id, by string) error {
	if err := s.repo.ResolveFinding(ctx, id, by); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventFindingResolved,
		Payload: map[string]string{"finding_id": id, "resolved_by": by},
	})
	return nil
}

// ExportFormat selects the output encoding of Export
type ExportFormat string

const (
	FormatRequirements ExportFormat = "requirements"
	FormatJSON         ExportFormat = "json"
	FormatYAML         ExportFormat = "yaml"
)

// Export writes a stored manifest to w in the requested format
func (s *ManifestService) Export(ctx context.Context, manifestID string, format ExportFormat, w io.Writer) error {
	m, err := s.repo.GetManifest(ctx, manifestID)
	if err != nil {
		return err
	}

	switch format {
	case FormatRequirements, "":
		return reqfile.Write(w, m)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(m)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func summarize(m *domain.Manifest, findings []*domain.Finding) *LintSummary {
	counts := domain.CountBySeverity(findings)
	return &LintSummary{
		ManifestID:   m.ID,
		Path:         m.Path,
		Requirements: len(m.Requirements),
		Errors:       counts[domain.SeverityError],
		Warnings:     counts[domain.SeverityWarning],
	}
}
