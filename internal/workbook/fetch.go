package workbook

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

// FetchResult is one workbook payload, read locally or downloaded.
type FetchResult struct {
	Source    string
	Body      []byte
	FromCache bool // body came from the disk cache (304 or network failure)
	Remote    bool
}

// cacheEntry holds HTTP cache metadata for a single workbook URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher loads workbooks from local paths or http(s) URLs, keeping a disk
// cache of downloads keyed by URL with ETag / Last-Modified revalidation.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching downloads under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/workbook-cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// IsRemote reports whether src is an http(s) URL.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch returns the raw workbook bytes for src.
func (f *Fetcher) Fetch(ctx context.Context, src string) (FetchResult, error) {
	if strings.TrimSpace(src) == "" {
		return FetchResult{}, errors.New("workbook: empty source")
	}
	if !IsRemote(src) {
		body, err := os.ReadFile(src)
		if err != nil {
			return FetchResult{}, fmt.Errorf("workbook: read %s: %w", src, err)
		}
		return FetchResult{Source: src, Body: body}, nil
	}
	return f.fetchURL(ctx, src)
}

// Load fetches src and reads its course rows.
func (f *Fetcher) Load(ctx context.Context, src string, opts ReadOptions) ([]model.CourseRow, error) {
	res, err := f.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	rows, err := ReadFrom(bytes.NewReader(res.Body), opts)
	if err != nil {
		return nil, err
	}
	appLog.Info("workbook loaded", "source", redactURL(src), "rows", len(rows), "from_cache", res.FromCache)
	return rows, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, src string) (FetchResult, error) {
	cachePath := f.cachePathForURL(src)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("workbook fetch start", "url", redactURL(src))

	cached := FetchResult{Source: src, Body: cachedBody, FromCache: true, Remote: true}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("workbook fetch network error, using cached body", err, "url", redactURL(src))
			return cached, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, err
		}
		newMeta := cacheEntry{
			URL:          src,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("workbook cache save failed", err, "url", redactURL(src))
		}
		appLog.Info("workbook fetch success", "url", redactURL(src), "bytes", len(body))
		return FetchResult{Source: src, Body: body, Remote: true}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("workbook: 304 Not Modified but no cached body")
		}
		appLog.Info("workbook not modified; using cache", "url", redactURL(src))
		return cached, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("workbook fetch non-OK, using cached body", errors.New(resp.Status),
				"url", redactURL(src), "status", resp.StatusCode)
			return cached, nil
		}
		return FetchResult{}, fmt.Errorf("workbook: fetch %s: %s", redactURL(src), resp.Status)
	}
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.xlsx"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.xlsx"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host; shared-drive links carry tokens in
// the path and query.
func redactURL(src string) string {
	if !IsRemote(src) {
		return src
	}
	u, err := url.Parse(src)
	if err != nil {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
