// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package physionet downloads database files from PhysioNet's static file
// server (https://physionet.org/files/<db>/<version>/...). Remote directory
// trees are discovered from the server's HTML index pages and mirrored into
// a local directory.
package physionet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/physionet-sample/internal/httputil"
	"github.com/pdiddy/physionet-sample/pkg/types"
)

// DefaultBaseURL is the public PhysioNet host.
const DefaultBaseURL = "https://physionet.org"

// maxDepth bounds recursion into remote subdirectories.
const maxDepth = 16

var (
	// ErrNotFound is returned when a remote database, version or directory
	// does not exist.
	ErrNotFound = errors.New("not found on PhysioNet")

	// ErrForbidden is returned for credentialed content the client may not read.
	ErrForbidden = errors.New("access denied by PhysioNet")

	// ErrEmpty is returned when a remote directory tree holds no files.
	ErrEmpty = errors.New("remote directory contains no files")

	// ErrNoVersion is returned when a database lists no version directories.
	ErrNoVersion = errors.New("no published version found")
)

// Client fetches files from PhysioNet. It implements batch.Fetcher.
type Client struct {
	http *http.Client
	cfg  types.PhysioNetConfig

	mu       sync.Mutex
	versions map[string]string
}

// New returns a Client using httpClient for all requests. An empty BaseURL
// defaults to DefaultBaseURL.
func New(httpClient *http.Client, cfg types.PhysioNetConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:     httpClient,
		cfg:      cfg,
		versions: make(map[string]string),
	}
}

// transferStats counts files handled by one Fetch call.
type transferStats struct {
	downloaded int
	skipped    int
}

// Fetch mirrors every file under remoteDir of database db into localDir,
// keeping the remote subdirectory layout. remoteDir is either "<db>/<sub>"
// or a path relative to the database root. Files that already exist locally
// are left untouched unless the client is configured to overwrite.
func (c *Client) Fetch(ctx context.Context, db, remoteDir, localDir string) error {
	rel := strings.Trim(remoteDir, "/")
	if rel == db {
		rel = ""
	} else {
		rel = strings.TrimPrefix(rel, db+"/")
	}

	version, err := c.ResolveVersion(ctx, db)
	if err != nil {
		return err
	}

	var stats transferStats
	if err := c.mirror(ctx, []string{db, version, rel}, localDir, 0, &stats); err != nil {
		return err
	}
	if stats.downloaded+stats.skipped == 0 {
		return fmt.Errorf("%s: %w", path.Join(db, version, rel), ErrEmpty)
	}

	zerolog.Ctx(ctx).Debug().
		Str("db", db).
		Str("version", version).
		Int("downloaded", stats.downloaded).
		Int("skipped", stats.skipped).
		Msg("Transfer complete")
	return nil
}

// mirror copies the remote directory named by parts into localDir.
func (c *Client) mirror(ctx context.Context, parts []string, localDir string, depth int, stats *transferStats) error {
	if depth > maxDepth {
		return fmt.Errorf("remote tree deeper than %d levels at %s", maxDepth, path.Join(parts...))
	}

	entries, err := c.List(ctx, c.dirURL(parts...))
	if err != nil {
		return fmt.Errorf("listing %s: %w", path.Join(parts...), err)
	}

	log := zerolog.Ctx(ctx)
	for _, e := range entries {
		child := append(parts[:len(parts):len(parts)], e.Name)
		target := filepath.Join(localDir, e.Name)

		if e.IsDir {
			if err := c.mirror(ctx, child, target, depth+1, stats); err != nil {
				return err
			}
			continue
		}

		if !c.cfg.Overwrite {
			if _, err := os.Stat(target); err == nil {
				log.Debug().Str("file", target).Msg("Skipped existing file")
				stats.skipped++
				continue
			}
		}

		if err := os.MkdirAll(localDir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", localDir, err)
		}
		n, err := c.downloadFile(ctx, c.fileURL(child...), target)
		if err != nil {
			return fmt.Errorf("downloading %s: %w", path.Join(child...), err)
		}
		log.Debug().Str("file", target).Int64("bytes", n).Msg("Downloaded file")
		stats.downloaded++
	}
	return nil
}

// downloadFile fetches fileURL to destPath using a temporary file in the
// destination directory, renamed into place only after a complete copy.
func (c *Client) downloadFile(ctx context.Context, fileURL, destPath string) (int64, error) {
	resp, err := c.get(ctx, fileURL, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".physionet-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp file: %w", closeErr)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("short read: got %d of %d bytes", n, resp.ContentLength)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}

// get issues a GET through the retry helper and maps error statuses.
// The caller closes the body of the returned response.
func (c *Client) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if !c.cfg.Credentials.Empty() {
		req.SetBasicAuth(c.cfg.Credentials.Username, c.cfg.Credentials.Password)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w (HTTP %d)", rawURL, ErrForbidden, resp.StatusCode)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
}

// dirURL returns the index page URL of a directory under /files/.
func (c *Client) dirURL(parts ...string) string {
	return c.fileURL(parts...) + "/"
}

// fileURL returns the URL of a path under /files/, escaping each segment.
func (c *Client) fileURL(parts ...string) string {
	var segs []string
	for _, p := range parts {
		for _, s := range strings.Split(p, "/") {
			if s != "" {
				segs = append(segs, url.PathEscape(s))
			}
		}
	}
	return c.cfg.BaseURL + "/files/" + strings.Join(segs, "/")
}
