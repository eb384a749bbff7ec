package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir     string
	configPath  string
	downloadDir string
	metadata    string
	historyDB   string
}

func setupCLITestEnv(t *testing.T, apiURL string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		baseDir:     base,
		configPath:  filepath.Join(homeDir, ".config", "harvest", "config.toml"),
		downloadDir: filepath.Join(base, "downloads"),
		metadata:    filepath.Join(base, "metadata.json"),
		historyDB:   filepath.Join(base, "history.db"),
	}

	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := fmt.Sprintf(`[catalog]
api_url = %q
theme = "Hospitals"
request_timeout = 5

[paths]
download_dir = %q
metadata_path = %q
history_db_path = %q

[sync]
concurrency = 2

[logging]
format = "console"
level = "error"
`, apiURL, env.downloadDir, env.metadata, env.historyDB)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func newFakeCatalog(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/catalog", func(w http.ResponseWriter, r *http.Request) {
		listing := fmt.Sprintf(`{"items": [
			{"id": "xubh-q36u", "name": "Hospital General Information",
			 "last_modified": "2024-03-05T14:30:15",
			 "download_url": "%s/data/xubh-q36u.csv"},
			{"id": "ynj2-r877", "name": "Dialysis Facility Listing",
			 "last_modified": "2024-03-01T09:00:00",
			 "download_url": "%s/data/ynj2-r877.csv"}
		]}`, server.URL, server.URL)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, listing)
	})
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, "Facility ID,Hospital Name\n010001,Some Hospital\n")
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
