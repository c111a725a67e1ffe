package titles

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const datasetURL = "https://datasets.imdbws.com/title.basics.tsv.gz"

// Refresher keeps the local title.basics.tsv within maxAge of the
// published IMDb dataset.
type Refresher struct {
	path   string
	url    string
	maxAge time.Duration
	client *http.Client
}

func NewRefresher(path string) *Refresher {
	return &Refresher{
		path:   path,
		url:    datasetURL,
		maxAge: 24 * time.Hour,
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Run refreshes when stale and only logs on failure; the index keeps
// serving whatever file is on disk.
func (r *Refresher) Run(ctx context.Context) {
	if !r.stale() {
		return
	}
	if err := r.download(ctx); err != nil {
		slog.Warn("IMDb dataset refresh failed", "path", r.path, "error", err)
		return
	}
	slog.Info("IMDb dataset refreshed", "path", r.path)
}

func (r *Refresher) stale() bool {
	stat, err := os.Stat(r.path)
	if err != nil {
		return true
	}
	return time.Since(stat.ModTime()) > r.maxAge
}

// download gunzips into a temp file and renames it into place so a
// concurrent lookup never sees a half-written dataset.
func (r *Refresher) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dataset endpoint returned status %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), "title.basics-*.tsv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, gz); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), r.path)
}
