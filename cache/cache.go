// Package cache keeps fetched documents on disk, keyed by an external
// identifier, so repeated runs do not hit upstream APIs again.
package cache

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/miku/purekit"
	"github.com/miku/purekit/atomicfile"
	log "github.com/sirupsen/logrus"
)

var ErrCacheMiss = errors.New("cache miss")

// Cacher allows to save and request data by key.
type Cacher interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Fetcher retrieves a document for a key from somewhere else.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// FetcherFunc adapts a function to a Fetcher.
type FetcherFunc func(ctx context.Context, key string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, key string) ([]byte, error) {
	return f(ctx, key)
}

var safeKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileCache stores one file per key in a directory, named like
// "<Prefix><key><Suffix>", e.g. "jufo_51218.json".
type FileCache struct {
	Dir    string
	Prefix string
	Suffix string
	// TTL, if positive, makes entries older than TTL a miss.
	TTL time.Duration
}

// DefaultDir returns the cache directory for a name under the XDG cache home.
func DefaultDir(name string) (string, error) {
	// xdg.CacheFile creates parent directories of the file
	placeholder, err := xdg.CacheFile(filepath.Join(purekit.AppName, name, ".keep"))
	if err != nil {
		return "", err
	}
	return filepath.Dir(placeholder), nil
}

// NewFileCache creates a file cache in dir, which is created if necessary.
func NewFileCache(dir, prefix string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{Dir: dir, Prefix: prefix, Suffix: ".json"}, nil
}

// slugify a key that cannot be used as a filename as is.
func slugify(s string) string {
	h := sha1.New()
	_, _ = io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Path returns the filename for a key.
func (c *FileCache) Path(key string) string {
	if !safeKey.MatchString(key) || key == "." || key == ".." {
		key = slugify(key)
	}
	return filepath.Join(c.Dir, c.Prefix+key+c.Suffix)
}

func (c *FileCache) Get(key string) ([]byte, error) {
	filename := c.Path(key)
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	if c.TTL > 0 && time.Since(info.ModTime()) > c.TTL {
		return nil, ErrCacheMiss
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrCacheMiss
	}
	return b, nil
}

func (c *FileCache) Set(key string, value []byte) error {
	filename := c.Path(key)
	log.WithField("file", filename).Debug("cached")
	return atomicfile.WriteFile(filename, value, 0644)
}

type result struct {
	b   []byte
	err error
}

// Cached is a fetcher, that consults a cache first and stores fetched
// documents in it. Each key is looked up at most once per value of Cached,
// failures included, so a failing upstream is not asked again within a run.
type Cached struct {
	Cache   Cacher
	Fetcher Fetcher
	// Validate, if set, checks a document before it is stored. Invalid
	// documents are never written to the cache, and invalid cache entries
	// are fetched again.
	Validate func([]byte) error

	mu   sync.Mutex
	seen map[string]result
	// Fetches counts upstream requests.
	Fetches int
}

// Fetch returns the document for key from memory, cache or upstream, in that
// order.
func (c *Cached) Fetch(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]result)
	}
	if r, ok := c.seen[key]; ok {
		return r.b, r.err
	}
	b, err := c.fetch(ctx, key)
	c.seen[key] = result{b: b, err: err}
	return b, err
}

func (c *Cached) fetch(ctx context.Context, key string) ([]byte, error) {
	b, err := c.Cache.Get(key)
	switch {
	case err == nil:
		if verr := c.validate(b); verr != nil {
			log.WithFields(log.Fields{"key": key, "err": verr}).Warn("invalid cache entry")
			break
		}
		log.WithField("key", key).Trace("read from cache")
		return b, nil
	case !errors.Is(err, ErrCacheMiss):
		return nil, err
	}
	if c.Fetcher == nil {
		return nil, ErrCacheMiss
	}
	c.Fetches++
	b, err = c.Fetcher.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := c.validate(b); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if err := c.Cache.Set(key, b); err != nil {
		return nil, fmt.Errorf("cache set %s: %w", key, err)
	}
	return b, nil
}

func (c *Cached) validate(b []byte) error {
	if c.Validate == nil {
		return nil
	}
	return c.Validate(b)
}
