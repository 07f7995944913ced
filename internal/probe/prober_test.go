package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johny-c/lagom/internal/domain"
	"github.com/johny-c/lagom/internal/lint"
	"github.com/johny-c/lagom/internal/repository/sqlite"
	"github.com/johny-c/lagom/internal/service"
)

// fakeIndex serves a canned PyPI-style JSON API
func fakeIndex(t *testing.T, releases map[string][]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for name, versions := range releases {
		payload := map[string]any{"releases": map[string][]any{}}
		rel := payload["releases"].(map[string][]any)
		for _, v := range versions {
			rel[v] = []any{}
		}
		data, err := json.Marshal(payload)
		require.NoError(t, err)

		mux.HandleFunc("/"+name+"/json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
		})
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPyPIClientReleases(t *testing.T) {
	srv := fakeIndex(t, map[string][]string{
		"numpy": {"1.15.0", "1.16.4", "2.0.0rc1", "not-a-version"},
	})
	client := NewPyPIClient(srv.URL, 5*time.Second)

	releases, err := client.Releases(context.Background(), "numpy")
	require.NoError(t, err)
	require.Len(t, releases, 3) // the junk version string is skipped
	assert.Equal(t, "1.15.0", releases[0].String())
	assert.Equal(t, "2.0.0rc1", releases[2].String())

	_, err = client.Releases(context.Background(), "no-such-package")
	assert.ErrorIs(t, err, ErrPackageNotFound)
}

func TestVerifyManifest(t *testing.T) {
	srv := fakeIndex(t, map[string][]string{
		"numpy": {"1.15.0", "1.16.4", "1.17.0"},
		"gym":   {"0.9.0", "0.10.5"},
	})

	repo, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := service.NewEventBus()
	events := make(chan service.Event, 32)
	bus.Subscribe(events)

	svc := service.NewManifestService(repo, lint.New(nil), bus, zap.NewNop())

	path := filepath.Join(t.TempDir(), "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte(`numpy>=1.16
gym>=0.12.5
missing-package>=1.0
`), 0644))

	m, _, err := svc.LoadFile(context.Background(), path)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MaxConcurrent = 2
	prober := New(repo, NewPyPIClient(srv.URL, 5*time.Second), bus, cfg, zap.NewNop())

	require.NoError(t, prober.VerifyManifest(context.Background(), m.ID))

	reqs, err := repo.ListRequirements(context.Background(), m.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	byName := make(map[string]domain.VerifyStatus)
	for _, r := range reqs {
		byName[r.Canonical] = r.Status
	}
	assert.Equal(t, domain.VerifyOK, byName["numpy"])            // 1.16.4, 1.17.0 satisfy
	assert.Equal(t, domain.VerifyUnresolvable, byName["gym"])    // nothing >= 0.12.5 released
	assert.Equal(t, domain.VerifyUnresolvable, byName["missing-package"])

	var sawCompleted bool
	for len(events) > 0 {
		if e := <-events; e.Type == service.EventVerifyCompleted {
			sawCompleted = true
		}
	}
	assert.True(t, sawCompleted, "expected a verify_completed event")
}

func TestVerifyRequirementSkipsPreReleases(t *testing.T) {
	srv := fakeIndex(t, map[string][]string{
		"torch": {"2.0.0rc1"},
	})

	client := NewPyPIClient(srv.URL, 5*time.Second)
	cfg := DefaultConfig()

	req := domain.NewRequirement("torch")
	spec, err := domain.ParseSpecifier(">=2.0.0rc1")
	require.NoError(t, err)
	req.Specifiers = []*domain.Specifier{spec}

	p := New(nil, client, service.NewEventBus(), cfg, zap.NewNop())
	assert.Equal(t, domain.VerifyUnresolvable, p.verifyRequirement(context.Background(), req))

	cfg.IncludePreReleases = true
	p = New(nil, client, service.NewEventBus(), cfg, zap.NewNop())
	assert.Equal(t, domain.VerifyOK, p.verifyRequirement(context.Background(), req))
}

func TestVerifyRequirementIndexFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p := New(nil, NewPyPIClient(srv.URL, 5*time.Second), service.NewEventBus(), DefaultConfig(), zap.NewNop())
	req := domain.NewRequirement("numpy")

	// A failing index leaves the requirement unverified rather than
	// declaring it unresolvable.
	assert.Equal(t, domain.VerifyUnverified, p.verifyRequirement(context.Background(), req))
}
