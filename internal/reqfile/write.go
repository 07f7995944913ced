package reqfile

import (
	"fmt"
	"io"
	"os"

	"github.com/johny-c/lagom/internal/domain"
)

// Write renders the manifest in normalized form: requirements in original
// order, one per line, with a comment header emitted whenever the group
// changes.
func Write(w io.Writer, m *domain.Manifest) error {
	group := ""
	first := true

	for _, r := range m.Requirements {
		if r.Group != group {
			if !first {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if r.Group != "" {
				if _, err := fmt.Fprintf(w, "# %s\n", r.Group); err != nil {
					return err
				}
			}
			group = r.Group
		}
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
		first = false
	}

	return nil
}

// Save writes the manifest to a file in normalized form
func Save(path string, m *domain.Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}

	if err := Write(f, m); err != nil {
		f.Close()
		return fmt.Errorf("write manifest: %w", err)
	}

	return f.Close()
}
