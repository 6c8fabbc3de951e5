package cli_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/phabdigest/internal/adapter/driving/cli"
)

// setTestEnv clears the configuration variables so ambient credentials
// never leak into a test run.
func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PHABRICATOR_TOKEN", "")
	t.Setenv("PHABRICATOR_BASE_URL", "")
	t.Setenv("PHABRICATOR_COOKIES", "")
}

func conduitEnvelope(t *testing.T, w http.ResponseWriter, result string) {
	t.Helper()
	_, err := fmt.Fprintf(w, `{"error_code":null,"error_info":null,"result":%s}`, result)
	require.NoError(t, err)
}

// newConduitServer serves a revision with a single general comment by
// Alice, enough for an end-to-end run without inline comments.
func newConduitServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/differential.revision.search":
			conduitEnvelope(t, w, `{"data":[{"id":77,"phid":"PHID-DREV-77"}]}`)
		case "/api/transaction.search":
			conduitEnvelope(t, w, fmt.Sprintf(
				`{"data":[{"id":1,"phid":"PHID-XACT-1","type":"comment","authorPHID":"PHID-USER-1","dateCreated":%d,"comments":[{"id":10,"content":{"raw":"Looks good overall."}}]}],"cursor":{"after":null}}`,
				docTime(0).Unix()))
		case "/api/user.search":
			conduitEnvelope(t, w, `{"data":[{"fields":{"username":"alice","realName":"Alice Doe"}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	return server
}

func TestExecute_RequiresToken(t *testing.T) {
	setTestEnv(t)

	err := cli.Execute(context.Background(), []string{"--revision", "123"}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Phabricator API token required")
	assert.Contains(t, err.Error(), "Get your token at:")
}

func TestExecute_RequiresRevision(t *testing.T) {
	setTestEnv(t)

	err := cli.Execute(context.Background(), []string{"--token", "tok"}, nil)

	assert.ErrorContains(t, err, "either --url or --revision must be provided")
}

func TestExecute_RejectsUnknownFormat(t *testing.T) {
	setTestEnv(t)

	err := cli.Execute(context.Background(), []string{"--token", "tok", "--revision", "1", "--format", "pdf"}, nil)

	assert.ErrorContains(t, err, `invalid format "pdf"`)
}

func TestExecute_RejectsBadRevision(t *testing.T) {
	setTestEnv(t)

	err := cli.Execute(context.Background(), []string{"--token", "tok", "--revision", "notanid"}, nil)

	assert.ErrorContains(t, err, "invalid revision ID")
}

func TestExecute_RejectsURLWithoutRevision(t *testing.T) {
	setTestEnv(t)

	err := cli.Execute(context.Background(), []string{"--token", "tok", "--url", "https://phab.example.com/settings"}, nil)

	assert.ErrorContains(t, err, "no revision ID")
}

func TestExecute_RejectsNonPositiveTimeout(t *testing.T) {
	setTestEnv(t)

	err := cli.Execute(context.Background(), []string{"--token", "tok", "--revision", "1", "--timeout", "0s"}, nil)

	assert.ErrorContains(t, err, "timeout must be positive")
}

func TestExecute_RejectsZeroConcurrency(t *testing.T) {
	setTestEnv(t)

	err := cli.Execute(context.Background(), []string{"--token", "tok", "--revision", "1", "--concurrency", "0"}, nil)

	assert.ErrorContains(t, err, "concurrency must be at least 1")
}

func TestExecute_WritesDocumentToFile(t *testing.T) {
	setTestEnv(t)
	server := newConduitServer(t)
	outPath := filepath.Join(t.TempDir(), "comments.md")

	err := cli.Execute(context.Background(), []string{
		"--token", "tok",
		"--url", server.URL + "/D77",
		"--cookies", "phsid=s; phusr=u",
		"--output", outPath,
	}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"# Phabricator Review Comments - " + server.URL + "/D77",
		"",
		"## General Comments",
		"",
		"### Comment by Alice Doe (alice) (2025-03-14 12:00:00)",
		"",
		"Looks good overall.",
		"",
		"---",
		"",
	}, "\n")
	assert.Equal(t, expected, string(data))
}

func TestExecute_HTMLOutput(t *testing.T) {
	setTestEnv(t)
	server := newConduitServer(t)
	outPath := filepath.Join(t.TempDir(), "comments.html")

	err := cli.Execute(context.Background(), []string{
		"--token", "tok",
		"--url", server.URL + "/D77",
		"--cookies", "phsid=s; phusr=u",
		"--format", "html",
		"--output", outPath,
	}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	assert.Contains(t, string(data), "<!DOCTYPE html>")
	assert.Contains(t, string(data), "<title>Phabricator Review Comments - D77</title>")
	assert.Contains(t, string(data), "Looks good overall.")
}
