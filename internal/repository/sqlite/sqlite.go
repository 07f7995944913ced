// Package sqlite implements repository.Repository on SQLite using the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/johny-c/lagom/internal/domain"
	"github.com/johny-c/lagom/internal/repository"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS manifests (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		hash TEXT NOT NULL,
		data JSON NOT NULL,
		loaded_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS requirements (
		manifest_id TEXT NOT NULL,
		line INTEGER NOT NULL,
		name TEXT NOT NULL,
		canonical_name TEXT NOT NULL,
		grp TEXT,
		data JSON NOT NULL,
		verify_status TEXT NOT NULL DEFAULT 'unverified',
		last_verified DATETIME,
		PRIMARY KEY (manifest_id, line),
		FOREIGN KEY (manifest_id) REFERENCES manifests(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS findings (
		id TEXT PRIMARY KEY,
		manifest_id TEXT NOT NULL,
		rule TEXT NOT NULL,
		severity TEXT NOT NULL,
		package TEXT,
		line INTEGER,
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		created_at DATETIME NOT NULL,
		resolved_at DATETIME,
		resolved_by TEXT,
		FOREIGN KEY (manifest_id) REFERENCES manifests(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_requirements_name ON requirements(canonical_name);
	CREATE INDEX IF NOT EXISTS idx_findings_manifest ON findings(manifest_id, status);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ImportManifest stores a manifest, its requirements, and its findings in
// one transaction, replacing any previous import for the same path.
func (r *Repository) ImportManifest(ctx context.Context, m *domain.Manifest, findings []*domain.Finding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// A re-import of the same path replaces the old manifest; cascade
	// removes its requirements and findings.
	if _, err := tx.ExecContext(ctx, `DELETE FROM manifests WHERE path = ? AND id != ?`, m.Path, m.ID); err != nil {
		return fmt.Errorf("failed to clear previous import: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM manifests WHERE id = ?`, m.ID); err != nil {
		return fmt.Errorf("failed to clear previous import: %w", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO manifests (id, path, hash, data, loaded_at) VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Path, m.Hash, data, m.LoadedAt); err != nil {
		return fmt.Errorf("failed to insert manifest: %w", err)
	}

	reqStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO requirements (manifest_id, line, name, canonical_name, grp, data, verify_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare requirement statement: %w", err)
	}
	defer reqStmt.Close()

	for _, req := range m.Requirements {
		reqData, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to marshal requirement %s: %w", req.Name, err)
		}
		if _, err := reqStmt.ExecContext(ctx, m.ID, req.Line, req.Name, req.Canonical, req.Group, reqData, req.Status); err != nil {
			return fmt.Errorf("failed to insert requirement %s: %w", req.Name, err)
		}
	}

	findStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (id, manifest_id, rule, severity, package, line, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare finding statement: %w", err)
	}
	defer findStmt.Close()

	for _, f := range findings {
		if _, err := findStmt.ExecContext(ctx, f.ID, m.ID, f.Rule, f.Severity, f.Package, f.Line, f.Message, f.Status, f.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetManifest retrieves a manifest by ID
func (r *Repository) GetManifest(ctx context.Context, id string) (*domain.Manifest, error) {
	return r.getManifest(ctx, `SELECT data FROM manifests WHERE id = ?`, id)
}

// GetManifestByPath retrieves a manifest by source path
func (r *Repository) GetManifestByPath(ctx context.Context, path string) (*domain.Manifest, error) {
	return r.getManifest(ctx, `SELECT data FROM manifests WHERE path = ?`, path)
}

func (r *Repository) getManifest(ctx context.Context, query string, arg any) (*domain.Manifest, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}

	m := &domain.Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return m, nil
}

// ListManifests returns all stored manifests
func (r *Repository) ListManifests(ctx context.Context) ([]*domain.Manifest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM manifests ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query manifests: %w", err)
	}
	defer rows.Close()

	var out []*domain.Manifest
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan manifest: %w", err)
		}
		m := &domain.Manifest{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteManifest removes a manifest; requirements and findings cascade
func (r *Repository) DeleteManifest(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM manifests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListRequirements returns the requirements of a manifest in line order
func (r *Repository) ListRequirements(ctx context.Context, manifestID string) ([]*domain.Requirement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data, verify_status, last_verified FROM requirements
		WHERE manifest_id = ? ORDER BY line
	`, manifestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirements: %w", err)
	}
	defer rows.Close()

	var out []*domain.Requirement
	for rows.Next() {
		var (
			data         []byte
			status       string
			lastVerified sql.NullTime
		)
		if err := rows.Scan(&data, &status, &lastVerified); err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		req := &domain.Requirement{}
		if err := json.Unmarshal(data, req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requirement: %w", err)
		}

		// Indexed columns are the source of truth for verification state
		req.Status = domain.VerifyStatus(status)
		if lastVerified.Valid {
			req.LastVerified = lastVerified.Time.UTC().Format(time.RFC3339)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// UpdateRequirementVerification records the result of an index probe
func (r *Repository) UpdateRequirementVerification(ctx context.Context, manifestID string, line int, status domain.VerifyStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE requirements SET verify_status = ?, last_verified = ?
		WHERE manifest_id = ? AND line = ?
	`, status, at, manifestID, line)
	if err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListFindings returns findings for a manifest, optionally filtered by status
func (r *Repository) ListFindings(ctx context.Context, manifestID string, status domain.FindingStatus) ([]*domain.Finding, error) {
	query := `
		SELECT id, manifest_id, rule, severity, package, line, message, status, created_at, resolved_at, resolved_by
		FROM findings WHERE manifest_id = ?
	`
	args := []any{manifestID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY line, rule`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var out []*domain.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFinding retrieves a single finding by ID
func (r *Repository) GetFinding(ctx context.Context, id string) (*domain.Finding, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, manifest_id, rule, severity, package, line, message, status, created_at, resolved_at, resolved_by
		FROM findings WHERE id = ?
	`, id)

	f, err := scanFinding(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	return f, err
}

// ResolveFinding marks a finding resolved
func (r *Repository) ResolveFinding(ctx context.Context, id, by string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE findings SET status = ?, resolved_at = ?, resolved_by = ?
		WHERE id = ? AND status = ?
	`, domain.FindingResolved, time.Now(), by, id, domain.FindingOpen)
	if err != nil {
		return fmt.Errorf("failed to resolve finding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
