// Package probe verifies stored requirements against a package index:
// a requirement is verified when at least one released version satisfies
// every specifier clause, and unresolvable otherwise.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/johny-c/lagom/internal/domain"
)

// IndexClient retrieves the released versions of a package
type IndexClient interface {
	// Releases returns the released versions of a package, sorted ascending.
	// Unparseable version strings published to the index are skipped.
	Releases(ctx context.Context, canonicalName string) ([]*domain.Version, error)
}

// ErrPackageNotFound is reported through this error value's message; callers
// match it with errors.Is.
var ErrPackageNotFound = fmt.Errorf("package not found on index")

// PyPIClient queries the JSON API of a PyPI-compatible index
type PyPIClient struct {
	baseURL string
	client  *http.Client
}

// NewPyPIClient creates an index client for the given base URL
// (e.g. "https://pypi.org/pypi").
func NewPyPIClient(baseURL string, timeout time.Duration) *PyPIClient {
	return &PyPIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Releases implements IndexClient against the /{name}/json endpoint
func (c *PyPIClient) Releases(ctx context.Context, canonicalName string) ([]*domain.Version, error) {
	url := fmt.Sprintf("%s/%s/json", c.baseURL, canonicalName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query index for %s: %w", canonicalName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", canonicalName, ErrPackageNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned %s for %s", resp.Status, canonicalName)
	}

	var payload struct {
		Releases map[string][]json.RawMessage `json:"releases"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode index response for %s: %w", canonicalName, err)
	}

	var versions []*domain.Version
	for raw := range payload.Releases {
		v, err := domain.ParseVersion(raw)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Compare(versions[j]) < 0
	})
	return versions, nil
}
