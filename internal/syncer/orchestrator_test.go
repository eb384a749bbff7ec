package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"harvest/internal/services"
	"harvest/internal/services/catalog"
	"harvest/internal/syncer"
	"harvest/internal/syncmeta"
	"harvest/internal/testsupport"
)

// fakeCatalog serves a catalog listing plus per-dataset CSV bodies and
// counts download requests.
type fakeCatalog struct {
	srv       *httptest.Server
	datasets  []map[string]string
	bodies    map[string]string
	failIDs   map[string]int // dataset id -> status code to return
	downloads atomic.Int64
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	f := &fakeCatalog{
		bodies:  map[string]string{},
		failIDs: map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog", func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]string, 0, len(f.datasets))
		for _, ds := range f.datasets {
			entry := map[string]string{}
			for k, v := range ds {
				entry[k] = v
			}
			entry["download_url"] = f.srv.URL + "/data/" + entry["id"] + ".csv"
			items = append(items, entry)
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		f.downloads.Add(1)
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/data/"), ".csv")
		if code, ok := f.failIDs[id]; ok {
			http.Error(w, "unavailable", code)
			return
		}
		body, ok := f.bodies[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCatalog) add(id, name, lastModified, body string) {
	f.datasets = append(f.datasets, map[string]string{
		"id":            id,
		"name":          name,
		"last_modified": lastModified,
	})
	f.bodies[id] = body
}

func newOrchestrator(t *testing.T, f *fakeCatalog) (*syncer.Orchestrator, *syncmeta.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Catalog.APIURL = f.srv.URL + "/catalog"
	cfg.Catalog.Theme = "Hospitals"

	meta, err := syncmeta.Load(cfg.Paths.MetadataPath, nil)
	if err != nil {
		t.Fatalf("load metadata: %v", err)
	}
	client := catalog.NewClient(cfg.Catalog.APIURL, f.srv.Client(), nil)
	return syncer.New(cfg, client, meta, nil), meta, cfg.Paths.DownloadDir
}

func TestRunDownloadsThenSkips(t *testing.T) {
	f := newFakeCatalog(t)
	f.add("aaa", "Hospital General Information", "2024-01-15T08:30:00", "Hospital Name,State\nAlpha,TX\n")
	f.add("bbb", "Hospital Readmissions", "2024-02-01T00:00:00", "Measure ID,Score\nREADM-30,12\n")
	f.add("ccc", "Nursing Homes", "2024-02-01T00:00:00", "Name\nSunrise\n")

	o, _, downloadDir := newOrchestrator(t, f)

	summary, err := o.Run(context.Background(), syncer.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := summary.Count(syncer.OutcomeDownloaded); got != 2 {
		t.Fatalf("expected 2 downloads (theme filter), got %d", got)
	}
	if f.downloads.Load() != 2 {
		t.Fatalf("expected 2 download requests, got %d", f.downloads.Load())
	}

	data, err := os.ReadFile(filepath.Join(downloadDir, "aaa.csv"))
	if err != nil {
		t.Fatalf("read synced file: %v", err)
	}
	if !strings.HasPrefix(string(data), "hospital_name,state\n") {
		t.Errorf("header not normalized: %q", data)
	}

	// Second run with no remote changes: everything skips, zero fetches.
	summary, err = o.Run(context.Background(), syncer.Options{})
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if got := summary.Count(syncer.OutcomeSkipped); got != 2 {
		t.Fatalf("expected 2 skips on idempotent re-run, got %d", got)
	}
	if f.downloads.Load() != 2 {
		t.Fatalf("idempotent re-run must not fetch, total downloads %d", f.downloads.Load())
	}
}

func TestRunRedownloadsWhenRemoteIsNewer(t *testing.T) {
	f := newFakeCatalog(t)
	f.add("aaa", "Hospital General Information", "2024-01-15T08:30:00", "A\n1\n")

	o, _, _ := newOrchestrator(t, f)
	if _, err := o.Run(context.Background(), syncer.Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	f.datasets[0]["last_modified"] = "2024-03-01T00:00:00"
	summary, err := o.Run(context.Background(), syncer.Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Count(syncer.OutcomeDownloaded) != 1 {
		t.Fatal("newer last_modified should trigger re-download")
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	f := newFakeCatalog(t)
	f.add("ok1", "Hospital A", "2024-01-01T00:00:00", "X\n1\n")
	f.add("bad", "Hospital B", "2024-01-01T00:00:00", "X\n1\n")
	f.add("ok2", "Hospital C", "2024-01-01T00:00:00", "X\n1\n")
	f.failIDs["bad"] = http.StatusInternalServerError

	o, _, _ := newOrchestrator(t, f)
	summary, err := o.Run(context.Background(), syncer.Options{Concurrency: 3})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Count(syncer.OutcomeDownloaded) != 2 {
		t.Errorf("siblings of a failing task should succeed, downloaded=%d", summary.Count(syncer.OutcomeDownloaded))
	}
	if summary.Count(syncer.OutcomeFailed) != 1 {
		t.Errorf("expected exactly one failure, got %d", summary.Count(syncer.OutcomeFailed))
	}
	if !summary.Failed() {
		t.Error("summary should report the run as having failures")
	}
	for _, r := range summary.Results {
		if r.Dataset.ID == "bad" {
			if !errors.Is(r.Err, services.ErrStatus) {
				t.Errorf("expected ErrStatus for bad dataset, got %v", r.Err)
			}
		}
	}

	// Successful siblings must be reflected in durable metadata.
	reloaded, err := syncmeta.Load(o.MetadataPath(), nil)
	if err != nil {
		t.Fatalf("reload metadata: %v", err)
	}
	for _, id := range []string{"ok1", "ok2"} {
		if _, ok := reloaded.Watermark(id); !ok {
			t.Errorf("watermark for %s missing after partial failure", id)
		}
	}
	if _, ok := reloaded.Watermark("bad"); ok {
		t.Error("failed dataset must not gain a watermark")
	}
}

func TestRunMalformedCSVIsPerDatasetFailure(t *testing.T) {
	f := newFakeCatalog(t)
	f.add("aaa", "Hospital A", "2024-01-01T00:00:00", "A,B\n1\n")

	o, _, downloadDir := newOrchestrator(t, f)
	summary, err := o.Run(context.Background(), syncer.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Count(syncer.OutcomeFailed) != 1 {
		t.Fatalf("expected parse failure, got %+v", summary.Results)
	}
	if !errors.Is(summary.Results[0].Err, services.ErrParse) {
		t.Errorf("expected ErrParse, got %v", summary.Results[0].Err)
	}
	if _, err := os.Stat(filepath.Join(downloadDir, "aaa.csv")); !os.IsNotExist(err) {
		t.Error("malformed dataset must not leave a file behind")
	}
}

func TestRunListingFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Catalog.APIURL = srv.URL

	meta, err := syncmeta.Load(cfg.Paths.MetadataPath, nil)
	if err != nil {
		t.Fatalf("load metadata: %v", err)
	}
	o := syncer.New(cfg, catalog.NewClient(cfg.Catalog.APIURL, srv.Client(), nil), meta, nil)

	_, err = o.Run(context.Background(), syncer.Options{})
	if !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
}

func TestRunDryRunFetchesNothing(t *testing.T) {
	f := newFakeCatalog(t)
	f.add("aaa", "Hospital A", "2024-01-01T00:00:00", "A\n1\n")

	o, meta, _ := newOrchestrator(t, f)
	summary, err := o.Run(context.Background(), syncer.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Count(syncer.OutcomePlanned) != 1 {
		t.Fatalf("expected 1 planned dataset, got %+v", summary.Results)
	}
	if f.downloads.Load() != 0 {
		t.Errorf("dry run must not fetch dataset bodies, got %d downloads", f.downloads.Load())
	}
	if meta.Count() != 0 {
		t.Errorf("dry run must not record watermarks, got %d", meta.Count())
	}
}

func TestRunConcurrentUpdatesAllPersisted(t *testing.T) {
	f := newFakeCatalog(t)
	const n = 12
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("ds-%02d", i)
		f.add(id, fmt.Sprintf("Hospital %02d", i), "2024-01-01T00:00:00", "Col\nval\n")
	}

	o, _, _ := newOrchestrator(t, f)
	summary, err := o.Run(context.Background(), syncer.Options{Concurrency: 8})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Count(syncer.OutcomeDownloaded) != n {
		t.Fatalf("expected %d downloads, got %d", n, summary.Count(syncer.OutcomeDownloaded))
	}

	reloaded, err := syncmeta.Load(o.MetadataPath(), nil)
	if err != nil {
		t.Fatalf("reload metadata: %v", err)
	}
	if reloaded.Count() != n {
		t.Fatalf("expected all %d watermarks persisted, got %d", n, reloaded.Count())
	}
}
