// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package physionet

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/physionet-sample/pkg/types"
)

// fakeServer serves PhysioNet-style index pages generated from a flat map
// of file paths (relative to /files/) to contents.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string]string
	requests map[string]int
	auth     []string
}

func newFakeServer(t *testing.T, files map[string]string) *fakeServer {
	t.Helper()
	fs := &fakeServer{files: files, requests: make(map[string]int)}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	fs.requests[r.URL.Path]++
	if u, _, ok := r.BasicAuth(); ok {
		fs.auth = append(fs.auth, u)
	}
	fs.mu.Unlock()

	p, ok := strings.CutPrefix(r.URL.Path, "/files/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if body, ok := fs.files[p]; ok {
		w.Header().Set("Content-Type", "application/octet-stream")
		fmt.Fprint(w, body)
		return
	}
	if !strings.HasSuffix(p, "/") {
		http.NotFound(w, r)
		return
	}

	children := map[string]bool{}
	for name := range fs.files {
		rest, ok := strings.CutPrefix(name, p)
		if !ok {
			continue
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			children[rest[:i+1]] = true
		} else {
			children[rest] = true
		}
	}
	if len(children) == 0 && p != "" {
		http.NotFound(w, r)
		return
	}

	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><head><title>Index of /files/%s</title></head><body><pre>", p)
	fmt.Fprint(w, `<a href="?C=N;O=D">Name</a> <a href="../">Parent Directory</a>`+"\n")
	for _, n := range names {
		fmt.Fprintf(w, "<a href=\"%s\">%s</a>   2009-09-09 10:00  1K\n", n, n)
	}
	fmt.Fprint(w, `<a href="https://physionet.org/about/">About</a></pre></body></html>`)
}

func (fs *fakeServer) count(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.requests[path]
}

var eegFiles = map[string]string{
	"eegmmidb/1.0.0/RECORDS":                "S001/S001R01.edf\nS002/S002R01.edf\n",
	"eegmmidb/1.0.0/S001/S001R01.edf":       "edf-s001-r01",
	"eegmmidb/1.0.0/S001/S001R01.edf.event": "event-s001-r01",
	"eegmmidb/1.0.0/S001/extra/notes.txt":   "nested",
	"eegmmidb/1.0.0/S002/S002R01.edf":       "edf-s002-r01",
	"eegmmidb/0.9/S001/S001R01.edf":         "old",
}

func newTestClient(fs *fakeServer, cfg types.PhysioNetConfig) *Client {
	cfg.BaseURL = fs.URL
	cfg.UserAgent = "physionet-sample-test"
	return New(fs.Client(), cfg)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFetch_MirrorsSubjectTree(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{})
	dest := filepath.Join(t.TempDir(), "S001")

	err := c.Fetch(context.Background(), "eegmmidb", "eegmmidb/S001", dest)
	require.NoError(t, err)

	assert.Equal(t, "edf-s001-r01", readFile(t, filepath.Join(dest, "S001R01.edf")))
	assert.Equal(t, "event-s001-r01", readFile(t, filepath.Join(dest, "S001R01.edf.event")))
	assert.Equal(t, "nested", readFile(t, filepath.Join(dest, "extra", "notes.txt")))

	tmps, err := filepath.Glob(filepath.Join(dest, ".physionet-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmps, "temp files must not remain")
}

func TestFetch_DoesNotOverwriteExistingFiles(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{})
	dest := filepath.Join(t.TempDir(), "S001")

	require.NoError(t, os.MkdirAll(dest, 0o755))
	local := filepath.Join(dest, "S001R01.edf")
	require.NoError(t, os.WriteFile(local, []byte("local copy"), 0o644))

	require.NoError(t, c.Fetch(context.Background(), "eegmmidb", "eegmmidb/S001", dest))

	assert.Equal(t, "local copy", readFile(t, local))
	assert.Zero(t, fs.count("/files/eegmmidb/1.0.0/S001/S001R01.edf"))
	assert.Equal(t, "event-s001-r01", readFile(t, filepath.Join(dest, "S001R01.edf.event")))
}

func TestFetch_OverwriteReplacesFiles(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{Overwrite: true})
	dest := filepath.Join(t.TempDir(), "S001")

	require.NoError(t, os.MkdirAll(dest, 0o755))
	local := filepath.Join(dest, "S001R01.edf")
	require.NoError(t, os.WriteFile(local, []byte("stale"), 0o644))

	require.NoError(t, c.Fetch(context.Background(), "eegmmidb", "eegmmidb/S001", dest))
	assert.Equal(t, "edf-s001-r01", readFile(t, local))
}

func TestFetch_SecondRunSkipsEverything(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{})
	dest := filepath.Join(t.TempDir(), "S002")

	require.NoError(t, c.Fetch(context.Background(), "eegmmidb", "eegmmidb/S002", dest))
	require.NoError(t, c.Fetch(context.Background(), "eegmmidb", "eegmmidb/S002", dest))

	assert.Equal(t, 1, fs.count("/files/eegmmidb/1.0.0/S002/S002R01.edf"))
}

func TestFetch_MissingSubject(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{})
	dest := filepath.Join(t.TempDir(), "S999")

	err := c.Fetch(context.Background(), "eegmmidb", "eegmmidb/S999", dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no directory for a missing subject")
}

func TestFetch_MissingDatabase(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{})

	err := c.Fetch(context.Background(), "nosuchdb", "nosuchdb/S001", t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_PinnedVersion(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{Version: "0.9"})
	dest := filepath.Join(t.TempDir(), "S001")

	require.NoError(t, c.Fetch(context.Background(), "eegmmidb", "eegmmidb/S001", dest))
	assert.Equal(t, "old", readFile(t, filepath.Join(dest, "S001R01.edf")))
	assert.Zero(t, fs.count("/files/eegmmidb/"), "pinned version skips resolution")
}

func TestFetch_SendsCredentials(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{
		Credentials: types.Credentials{Username: "alice", Password: "secret"},
	})

	require.NoError(t, c.Fetch(context.Background(), "eegmmidb", "eegmmidb/S002", t.TempDir()))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.NotEmpty(t, fs.auth)
	for _, u := range fs.auth {
		assert.Equal(t, "alice", u)
	}
}

func TestFetch_Forbidden(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	c := New(ts.Client(), types.PhysioNetConfig{BaseURL: ts.URL, Version: "1.0.0"})
	err := c.Fetch(context.Background(), "mimic", "mimic/p10", t.TempDir())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFetch_EmptyRemoteDirectory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><a href="../">Parent Directory</a></body></html>`)
	}))
	defer ts.Close()

	c := New(ts.Client(), types.PhysioNetConfig{BaseURL: ts.URL, Version: "1.0.0"})
	err := c.Fetch(context.Background(), "eegmmidb", "eegmmidb/S001", t.TempDir())
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFetch_ContextCancelled(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := c.Fetch(ctx, "eegmmidb", "eegmmidb/S001", t.TempDir())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolveVersion(t *testing.T) {
	fs := newFakeServer(t, eegFiles)
	c := newTestClient(fs, types.PhysioNetConfig{})

	v, err := c.ResolveVersion(context.Background(), "eegmmidb")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v)

	v, err = c.ResolveVersion(context.Background(), "eegmmidb")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v)
	assert.Equal(t, 1, fs.count("/files/eegmmidb/"), "version is cached")
}

func TestResolveVersion_NoVersions(t *testing.T) {
	fs := newFakeServer(t, map[string]string{"odd/latest/file.txt": "x"})
	c := newTestClient(fs, types.PhysioNetConfig{})

	_, err := c.ResolveVersion(context.Background(), "odd")
	assert.ErrorIs(t, err, ErrNoVersion)
}

func TestParseHref(t *testing.T) {
	tests := []struct {
		href   string
		want   Entry
		wantOK bool
	}{
		{"S001R01.edf", Entry{Name: "S001R01.edf"}, true},
		{"S001/", Entry{Name: "S001", IsDir: true}, true},
		{"with%20space.txt", Entry{Name: "with space.txt"}, true},
		{"file.txt#frag", Entry{Name: "file.txt"}, true},
		{"../", Entry{}, false},
		{"./", Entry{}, false},
		{"?C=N;O=D", Entry{}, false},
		{"#top", Entry{}, false},
		{"/files/eegmmidb/", Entry{}, false},
		{"https://physionet.org/", Entry{}, false},
		{"a/b.txt", Entry{}, false},
		{"", Entry{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, ok := parseHref(tt.href)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0", "1.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"0.9", "1.0.0", -1},
		{"1.10.0", "1.9.0", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestFileURL(t *testing.T) {
	c := New(nil, types.PhysioNetConfig{BaseURL: "https://example.org/"})
	assert.Equal(t, "https://example.org/files/eegmmidb/1.0.0/S001", c.fileURL("eegmmidb", "1.0.0", "S001"))
	assert.Equal(t, "https://example.org/files/db/1.0/a%20b/", c.dirURL("db", "1.0", "", "a b"))
	assert.Equal(t, "https://example.org/files/db/1.0/x/y/", c.dirURL("db", "1.0", "x/y"))
}
