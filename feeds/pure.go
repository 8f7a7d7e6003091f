// Package feeds harvests raw data from upstream APIs and writes it to disk.
package feeds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/miku/purekit"
	"github.com/miku/purekit/schema/pure"
	"github.com/miku/purekit/xio"
	"github.com/segmentio/encoding/json"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultSize is the page size, the API itself defaults to 10.
const DefaultSize = 1000

// Doer abstracts https://pkg.go.dev/net/http#Client.Do.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// PureHarvester fetches all items of a Pure API, e.g. "research-outputs",
// following the navigation links page by page.
type PureHarvester struct {
	Client Doer
	// Endpoint is the API base, like "https://pure.example.org/ws/api/524".
	Endpoint  string
	APIKey    string
	Username  string
	Password  string
	Size      int
	Locale    string
	UserAgent string
	Limiter   *rate.Limiter
	// MaxRetries is the number of attempts to refetch a page that could not
	// be decoded.
	MaxRetries int
}

// NewPureHarvester returns a harvester with a retrying client.
func NewPureHarvester(endpoint string, maxRetries int, timeout time.Duration) *PureHarvester {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = maxRetries
	client.RetryOnHTTP429 = true
	client.Timeout = timeout
	return &PureHarvester{
		Client:     client,
		Endpoint:   endpoint,
		Size:       DefaultSize,
		UserAgent:  purekit.AppName + "/" + purekit.Version,
		MaxRetries: maxRetries,
	}
}

// Endpoint assembles the API base from hostname and uri, e.g. "pure.example.org"
// and "/ws/api/524".
func Endpoint(hostname, uri string) string {
	return "https://" + strings.TrimRight(hostname, "/") + "/" + strings.Trim(uri, "/")
}

// URL returns the link to the first page of an API.
func (h *PureHarvester) URL(api string) string {
	vs := url.Values{}
	vs.Set("navigationLink", "true")
	size := h.Size
	if size <= 0 {
		size = DefaultSize
	}
	vs.Set("size", strconv.Itoa(size))
	vs.Set("offset", "0")
	if h.Locale != "" {
		vs.Set("locale", h.Locale)
	}
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(h.Endpoint, "/"), strings.Trim(api, "/"), vs.Encode())
}

func (h *PureHarvester) fetch(ctx context.Context, link string) ([]byte, error) {
	if h.Limiter != nil {
		if err := h.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if h.APIKey != "" {
		req.Header.Set("api-key", h.APIKey)
	}
	if h.Username != "" {
		req.SetBasicAuth(h.Username, h.Password)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pure: HTTP %d while fetching %s", resp.StatusCode, link)
	}
	return io.ReadAll(resp.Body)
}

// PageFunc is called with each page, numbered from one, its raw body and the
// decoded envelope.
type PageFunc func(page int, body []byte, envelope *pure.Envelope) error

// Harvest fetches all pages of an API. Any HTTP error aborts the harvest.
func (h *PureHarvester) Harvest(ctx context.Context, api string, fn PageFunc) error {
	var (
		link = h.URL(api)
		page int
		seen int64
		i    int // for retries
	)
	for link != "" {
		log.WithField("link", link).Debug("pure: fetching")
		b, err := h.fetch(ctx, link)
		if err != nil {
			return err
		}
		var envelope pure.Envelope
		if err := json.Unmarshal(b, &envelope); err != nil {
			if i < h.MaxRetries {
				i++
				log.Warnf("pure: decode failed with %v, retrying [%d/%d]", err, i, h.MaxRetries)
				continue
			}
			return fmt.Errorf("pure: decode failed with %v", err)
		}
		i = 0
		page++
		seen += int64(len(envelope.Items))
		log.WithFields(log.Fields{"api": api, "page": page, "seen": seen, "total": envelope.Count}).Info("pure: page done")
		if err := fn(page, b, &envelope); err != nil {
			return err
		}
		link, _ = envelope.Next()
	}
	return nil
}

// SplitName returns the file name of a single page, e.g. "persons-0001.json"
// for "persons.json".
func SplitName(filename string, page int) string {
	dir, base := filepath.Split(filename)
	pre, ext, ok := strings.Cut(base, ".")
	if !ok {
		return filepath.Join(dir, fmt.Sprintf("%s-%04d", pre, page))
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%04d.%s", pre, page, ext))
}

// WriteFile harvests an API into a single {"items": [...]} document, written
// atomically and compressed by file extension. If split is true, each page
// is also saved as is, next to filename. Returns the number of items.
func (h *PureHarvester) WriteFile(ctx context.Context, api, filename string, split bool) (int, error) {
	w, err := xio.Create(filename)
	if err != nil {
		return 0, err
	}
	var n int
	if _, err := io.WriteString(w, `{"items":[`); err != nil {
		_ = w.Abort()
		return 0, err
	}
	err = h.Harvest(ctx, api, func(page int, body []byte, envelope *pure.Envelope) error {
		for _, item := range envelope.Items {
			if n > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			if _, err := w.Write(bytes.TrimSpace(item)); err != nil {
				return err
			}
			n++
		}
		if !split {
			return nil
		}
		sw, err := xio.Create(SplitName(filename, page))
		if err != nil {
			return err
		}
		if _, err := sw.Write(body); err != nil {
			_ = sw.Abort()
			return err
		}
		return sw.Close()
	})
	if err != nil {
		_ = w.Abort()
		return 0, err
	}
	if _, err := fmt.Fprintf(w, `],"count":%d}`, n); err != nil {
		_ = w.Abort()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"file": filename, "items": n}).Info("pure: written")
	return n, nil
}
