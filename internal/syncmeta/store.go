package syncmeta

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"harvest/internal/fileutil"
	"harvest/internal/logging"
	"harvest/internal/services"
)

// timeLayout is the stable round-trippable watermark encoding. It
// matches the catalog's last_modified format.
const timeLayout = "2006-01-02T15:04:05"

// Watermark pairs a dataset id with its stored timestamp.
type Watermark struct {
	DatasetID string
	Timestamp time.Time
}

// Store provides thread-safe access to the watermark metadata file.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	lastRun map[string]time.Time
}

type fileFormat struct {
	LastRun map[string]string `json:"last_run"`
}

// Load reads the metadata file at path, returning an empty store when
// the file does not exist. An unreadable or unparseable file is an
// ErrStorage: silently discarding watermark history would force a full
// re-download and mask data loss.
func Load(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:    path,
		logger:  logging.NewComponentLogger(logger, "syncmeta"),
		lastRun: make(map[string]time.Time),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("no metadata file, starting empty", logging.String("path", path))
			return s, nil
		}
		return nil, services.Wrap(services.ErrStorage, "syncmeta", "load", "read metadata file", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var raw fileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, services.Wrap(services.ErrStorage, "syncmeta", "load",
			fmt.Sprintf("metadata file %s is corrupt", path), err)
	}
	for id, value := range raw.LastRun {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ts, err := time.Parse(timeLayout, value)
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, "syncmeta", "load",
				fmt.Sprintf("watermark for dataset %s is not a valid timestamp", id), err)
		}
		s.lastRun[id] = ts
	}

	s.logger.Debug("metadata loaded",
		logging.Int("watermark_count", len(s.lastRun)),
		logging.String("path", path))
	return s, nil
}

// IsStale reports whether a dataset needs downloading: true when no
// watermark exists or when lastModified is strictly newer than the
// stored watermark. Equal timestamps are not stale.
func (s *Store) IsStale(datasetID string, lastModified time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.lastRun[datasetID]
	if !ok {
		return true
	}
	return lastModified.After(stored)
}

// MarkSynced records a successful download and persists the metadata
// file before releasing the lock, so a concurrent task cannot write a
// file that is missing this update.
func (s *Store) MarkSynced(datasetID string, lastModified time.Time) error {
	datasetID = strings.TrimSpace(datasetID)
	if datasetID == "" {
		return errors.New("dataset id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRun[datasetID] = lastModified
	if err := s.persistLocked(); err != nil {
		return err
	}

	s.logger.Debug("watermark recorded",
		logging.String(logging.FieldDatasetID, datasetID),
		logging.String("watermark", lastModified.Format(timeLayout)))
	return nil
}

// Persist writes the current metadata to disk. Sync runs call it once
// after all tasks complete; MarkSynced already persisted each update.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// Forget drops a single dataset's watermark, forcing a re-download on
// the next run.
func (s *Store) Forget(datasetID string) error {
	datasetID = strings.TrimSpace(datasetID)
	if datasetID == "" {
		return errors.New("dataset id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lastRun[datasetID]; !ok {
		return fmt.Errorf("dataset %q has no watermark", datasetID)
	}
	delete(s.lastRun, datasetID)
	return s.persistLocked()
}

// Reset clears every watermark and persists the empty store.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRun = make(map[string]time.Time)
	return s.persistLocked()
}

// Watermark returns the stored timestamp for a dataset if present.
func (s *Store) Watermark(datasetID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.lastRun[datasetID]
	return ts, ok
}

// Watermarks returns all stored watermarks sorted by dataset id.
func (s *Store) Watermarks() []Watermark {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Watermark, 0, len(s.lastRun))
	for id, ts := range s.lastRun {
		out = append(out, Watermark{DatasetID: id, Timestamp: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DatasetID < out[j].DatasetID })
	return out
}

// Count returns the number of stored watermarks.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastRun)
}

// Path returns the metadata file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) persistLocked() error {
	raw := fileFormat{LastRun: make(map[string]string, len(s.lastRun))}
	for id, ts := range s.lastRun {
		raw.LastRun[id] = ts.Format(timeLayout)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrStorage, "syncmeta", "persist", "marshal metadata", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrStorage, "syncmeta", "persist", "write metadata file", err)
	}
	return nil
}
