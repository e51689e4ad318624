// =============================================================================
// Trial Balance Reporter - Source Fetcher
// =============================================================================
//
// Downloads the source spreadsheets (ledger, mapping, template).
//
// CACHING:
//   Downloads are kept in a size-bounded LRU whose entries expire after the
//   configured TTL. Purge drops everything and Invalidate drops one URL, so a
//   user can force fresh data without restarting the server. Concurrent
//   requests for the same URL share a single download.
//
// LOCATIONS:
//   http:// and https:// URLs are fetched with GET. file:// URLs and plain
//   paths are read from disk, which is convenient for offline runs. Local
//   files are not cached.
//
// =============================================================================

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// defaultCacheSize applies when the configured size is not positive.
const defaultCacheSize = 16

// StatusError is returned when a source answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Fetcher downloads and caches source spreadsheets. It is safe for
// concurrent use.
type Fetcher struct {
	client *http.Client
	cache  *expirable.LRU[string, []byte]
	group  singleflight.Group
	log    *logrus.Logger
}

// NewFetcher creates a Fetcher.
//
// PARAMETERS:
//   - timeout: Bound on each HTTP request. Zero means no timeout.
//   - cache: Cache size and TTL. A TTL of zero or less never expires
//     entries; config.Load keeps a negative TTL for that purpose.
//   - log: Logger for download events.
func NewFetcher(timeout time.Duration, cache config.Cache, log *logrus.Logger) *Fetcher {
	size := cache.Size
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		cache:  expirable.NewLRU[string, []byte](size, nil, cache.TTL),
		log:    log,
	}
}

// Fetch returns the contents at location, from the cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if path, ok := localPath(location); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return data, nil
	}

	if data, ok := f.cache.Get(location); ok {
		f.log.WithField("url", location).Debug("source served from cache")
		return data, nil
	}

	// The shared download outlives any single caller; a cancelled caller
	// stops waiting for it instead.
	ch := f.group.DoChan(location, func() (interface{}, error) {
		data, err := f.download(context.WithoutCancel(ctx), location)
		if err != nil {
			return nil, err
		}
		f.cache.Add(location, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to fetch %s: %w", location, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			f.log.WithField("url", location).Debug("source download shared")
		}
		return res.Val.([]byte), nil
	}
}

// FetchAll fetches every location concurrently. The results are in the
// order of the arguments. The first failure cancels the remaining fetches.
func (f *Fetcher) FetchAll(ctx context.Context, locations ...string) ([][]byte, error) {
	results := make([][]byte, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	for i, location := range locations {
		g.Go(func() error {
			data, err := f.Fetch(gctx, location)
			if err != nil {
				return err
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Purge drops every cached source.
func (f *Fetcher) Purge() {
	f.cache.Purge()
	f.log.Info("source cache purged")
}

// Invalidate drops one cached source and reports whether it was cached.
func (f *Fetcher) Invalidate(location string) bool {
	return f.cache.Remove(location)
}

// Cached returns the number of cached sources.
func (f *Fetcher) Cached() int {
	return f.cache.Len()
}

// download performs a single GET request.
func (f *Fetcher) download(ctx context.Context, location string) ([]byte, error) {
	start := time.Now()
	log := f.log.WithField("url", location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.WithError(err).Error("source download failed")
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithField("status", resp.StatusCode).Error("source download failed")
		return nil, &StatusError{URL: location, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", location, err)
	}

	log.WithFields(logrus.Fields{
		"bytes":    len(data),
		"duration": time.Since(start).String(),
	}).Info("source downloaded")

	return data, nil
}

// localPath reports whether location names a local file.
func localPath(location string) (string, bool) {
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return strings.TrimPrefix(location, "file://"), true
		}
		return u.Path, true
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return "", false
	}
	return location, true
}
