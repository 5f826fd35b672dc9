// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package physionet

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Entry is one item of a remote directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// List fetches the HTML index page at dirURL and returns the entries it
// links to, in page order. Parent, sort, anchor and off-site links are
// ignored, as is anything that would escape the directory.
func (c *Client) List(ctx context.Context, dirURL string) ([]Entry, error) {
	resp, err := c.get(ctx, dirURL, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing listing %s: %w", dirURL, err)
	}

	var entries []Entry
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		e, ok := parseHref(href)
		if !ok || seen[e.Name] {
			return
		}
		seen[e.Name] = true
		entries = append(entries, e)
	})
	return entries, nil
}

// parseHref turns a relative link from an index page into an Entry.
func parseHref(href string) (Entry, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.ContainsAny(href[:1], "?#/") || strings.Contains(href, "://") {
		return Entry{}, false
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}

	isDir := strings.HasSuffix(href, "/")
	name, err := url.PathUnescape(strings.TrimSuffix(href, "/"))
	if err != nil || name == "" || name == "." || name == ".." || strings.Contains(name, "/") || strings.Contains(name, `\`) {
		return Entry{}, false
	}
	return Entry{Name: name, IsDir: isDir}, true
}

var versionRe = regexp.MustCompile(`^\d+(\.\d+)*$`)

// ResolveVersion returns the version the client uses for db: the pinned
// config version if set, otherwise the highest version directory listed
// under /files/<db>/. Results are cached for the client's lifetime.
func (c *Client) ResolveVersion(ctx context.Context, db string) (string, error) {
	if c.cfg.Version != "" {
		return c.cfg.Version, nil
	}

	c.mu.Lock()
	v, ok := c.versions[db]
	c.mu.Unlock()
	if ok {
		return v, nil
	}

	entries, err := c.List(ctx, c.dirURL(db))
	if err != nil {
		return "", fmt.Errorf("listing versions of %s: %w", db, err)
	}

	for _, e := range entries {
		if e.IsDir && versionRe.MatchString(e.Name) && (v == "" || compareVersions(e.Name, v) > 0) {
			v = e.Name
		}
	}
	if v == "" {
		return "", fmt.Errorf("%s: %w", db, ErrNoVersion)
	}

	c.mu.Lock()
	c.versions[db] = v
	c.mu.Unlock()
	return v, nil
}

// compareVersions compares dotted numeric versions segment by segment;
// a missing segment counts as zero.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < max(len(as), len(bs)); i++ {
		var x, y int
		if i < len(as) {
			x, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			y, _ = strconv.Atoi(bs[i])
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}
