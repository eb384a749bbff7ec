package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"harvest/internal/logging"
	"harvest/internal/services"
)

// TimestampLayout is the catalog's last_modified format: ISO-8601
// without a timezone designator.
const TimestampLayout = "2006-01-02T15:04:05"

// Dataset is one catalog entry. Instances are sourced fresh from the
// listing endpoint each run and never mutated locally.
type Dataset struct {
	ID           string
	Name         string
	LastModified time.Time
	DownloadURL  string
}

// HTTPDoer describes the HTTP client used by the catalog client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches the catalog listing and dataset bodies.
type Client struct {
	apiURL string
	client HTTPDoer
	logger *slog.Logger
}

// NewClient constructs a catalog client. A nil doer falls back to
// http.DefaultClient; callers normally inject a client with a timeout.
func NewClient(apiURL string, client HTTPDoer, logger *slog.Logger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		apiURL: strings.TrimSpace(apiURL),
		client: client,
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
}

type listingPayload struct {
	Items []datasetPayload `json:"items"`
}

type datasetPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LastModified string `json:"last_modified"`
	DownloadURL  string `json:"download_url"`
}

// ListDatasets fetches the full dataset listing. Any transport failure,
// non-success status, or malformed payload is an ErrRemote: the caller
// aborts the run before dataset work begins.
func (c *Client) ListDatasets(ctx context.Context) ([]Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrRemote, "catalog", "list", "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrRemote, "catalog", "list", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrRemote, "catalog", "list",
			fmt.Sprintf("listing returned status %d", resp.StatusCode), nil)
	}

	var payload listingPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrRemote, "catalog", "list", "decode listing", err)
	}

	datasets := make([]Dataset, 0, len(payload.Items))
	for _, item := range payload.Items {
		ds, err := item.toDataset()
		if err != nil {
			return nil, services.Wrap(services.ErrRemote, "catalog", "list", "", err)
		}
		datasets = append(datasets, ds)
	}

	c.logger.Debug("listing fetched", logging.Int("dataset_count", len(datasets)))
	return datasets, nil
}

func (p datasetPayload) toDataset() (Dataset, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return Dataset{}, fmt.Errorf("dataset %q has no id", p.Name)
	}
	if strings.TrimSpace(p.DownloadURL) == "" {
		return Dataset{}, fmt.Errorf("dataset %s has no download_url", id)
	}
	modified, err := time.Parse(TimestampLayout, strings.TrimSpace(p.LastModified))
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset %s has invalid last_modified %q: %w", id, p.LastModified, err)
	}
	return Dataset{
		ID:           id,
		Name:         strings.TrimSpace(p.Name),
		LastModified: modified,
		DownloadURL:  strings.TrimSpace(p.DownloadURL),
	}, nil
}

// Download streams the CSV body for a dataset. A non-success status is
// an ErrStatus; the caller records it per dataset without retrying.
// The returned reader must be closed by the caller.
func (c *Client) Download(ctx context.Context, ds Dataset) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ds.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request for %s: %w", ds.ID, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ds.ID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, services.Wrap(services.ErrStatus, "catalog", "download",
			fmt.Sprintf("dataset %s returned status %d", ds.ID, resp.StatusCode), nil)
	}
	return resp.Body, nil
}

// FilterByTheme selects datasets whose names contain theme,
// case-insensitively, preserving input order. A plural theme also
// matches its singular form, so "Hospitals" selects "Hospital General
// Information". An empty theme matches every dataset.
func FilterByTheme(datasets []Dataset, theme string) []Dataset {
	needle := strings.ToLower(strings.TrimSpace(theme))
	if needle == "" {
		return append([]Dataset{}, datasets...)
	}
	stem := needle
	if len(stem) > 1 && strings.HasSuffix(stem, "s") {
		stem = stem[:len(stem)-1]
	}
	matched := make([]Dataset, 0, len(datasets))
	for _, ds := range datasets {
		name := strings.ToLower(ds.Name)
		if strings.Contains(name, needle) || strings.Contains(name, stem) {
			matched = append(matched, ds)
		}
	}
	return matched
}
