package sqlite

import (
	"database/sql"

	"github.com/johny-c/lagom/internal/domain"
)

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFinding(row rowScanner) (*domain.Finding, error) {
	var (
		f          domain.Finding
		pkg        sql.NullString
		line       sql.NullInt64
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
	)

	err := row.Scan(&f.ID, &f.ManifestID, &f.Rule, &f.Severity, &pkg, &line,
		&f.Message, &f.Status, &f.CreatedAt, &resolvedAt, &resolvedBy)
	if err != nil {
		return nil, err
	}

	if pkg.Valid {
		f.Package = pkg.String
	}
	if line.Valid {
		f.Line = int(line.Int64)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		f.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		f.ResolvedBy = resolvedBy.String
	}

	return &f, nil
}
