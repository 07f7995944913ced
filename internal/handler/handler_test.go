package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johny-c/lagom/internal/domain"
	"github.com/johny-c/lagom/internal/lint"
	"github.com/johny-c/lagom/internal/repository/sqlite"
	"github.com/johny-c/lagom/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	svc := service.NewManifestService(repo, lint.New(nil), service.NewEventBus(), zap.NewNop())
	h := NewManifestHandler(svc, zap.NewNop())

	mux := http.NewServeMux()
	h.Routes(mux)

	srv := httptest.NewServer(Chain(mux, Recover(zap.NewNop()), CORS))
	t.Cleanup(srv.Close)
	return srv
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func loadManifest(t *testing.T, srv *httptest.Server, path string) service.LintSummary {
	t.Helper()

	body, _ := json.Marshal(LoadRequest{Path: path})
	resp, err := http.Post(srv.URL+"/api/manifests", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var summary service.LintSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	return summary
}

func TestLoadAndGetManifest(t *testing.T) {
	srv := newTestServer(t)
	path := writeManifest(t, "# common\nnumpy>=1.16.4\nscipy>=1.3.0\n")

	summary := loadManifest(t, srv, path)
	assert.Equal(t, 2, summary.Requirements)
	assert.Equal(t, 0, summary.Errors)

	resp, err := http.Get(srv.URL + "/api/manifests/" + summary.ManifestID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m domain.Manifest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, path, m.Path)
	assert.Len(t, m.Requirements, 2)
}

func TestGetManifestNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/manifests/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "Manifest not found", errResp.Error)
}

func TestLoadManifestBadPath(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(LoadRequest{Path: "/does/not/exist.txt"})
	resp, err := http.Post(srv.URL+"/api/manifests", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListRequirementsAndFindings(t *testing.T) {
	srv := newTestServer(t)
	path := writeManifest(t, "numpy>=1.16.4\nnumpy<1.0\n")

	summary := loadManifest(t, srv, path)
	require.Greater(t, summary.Errors, 0)

	resp, err := http.Get(srv.URL + "/api/manifests/" + summary.ManifestID + "/requirements")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reqs []*domain.Requirement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reqs))
	assert.Len(t, reqs, 2)

	resp, err = http.Get(srv.URL + "/api/manifests/" + summary.ManifestID + "/findings?status=open")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var findings []*domain.Finding
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&findings))
	require.NotEmpty(t, findings)

	// Resolve the first finding and confirm it leaves the open set
	body, _ := json.Marshal(ResolveRequest{ResolvedBy: "ops"})
	resp, err = http.Post(srv.URL+"/api/findings/"+findings[0].ID+"/resolve", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/manifests/" + summary.ManifestID + "/findings?status=open")
	require.NoError(t, err)
	defer resp.Body.Close()

	var remaining []*domain.Finding
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&remaining))
	assert.Len(t, remaining, len(findings)-1)
}

func TestFindingsBadStatusFilter(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/manifests/x/findings?status=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLintEndpoint(t *testing.T) {
	srv := newTestServer(t)

	content := "numpy>=1.16.4\nnumpy<1.0\nnot a valid line!!\n"
	resp, err := http.Post(srv.URL+"/api/lint", "text/plain", strings.NewReader(content))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result LintResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 2, result.Requirements)
	assert.Equal(t, 1, result.Invalid)
	assert.NotEmpty(t, result.Findings)
}

func TestExport(t *testing.T) {
	srv := newTestServer(t)
	path := writeManifest(t, "# common\nnumpy>=1.16.4\n")
	summary := loadManifest(t, srv, path)

	resp, err := http.Get(srv.URL + "/api/export/" + summary.ManifestID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "numpy>=1.16.4")

	resp, err = http.Get(srv.URL + "/api/export/" + summary.ManifestID + "?format=json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	resp, err = http.Get(srv.URL + "/api/export/" + summary.ManifestID + "?format=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteManifest(t *testing.T) {
	srv := newTestServer(t)
	path := writeManifest(t, "numpy>=1.16.4\n")
	summary := loadManifest(t, srv, path)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/manifests/"+summary.ManifestID, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/manifests/" + summary.ManifestID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVerifyWithoutVerifier(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/verify", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/manifests", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
