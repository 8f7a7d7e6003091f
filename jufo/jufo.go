// Package jufo talks to the REST API of the Finnish Publication Forum (JUFO),
// which rates journals and series on a level from 0 to 3.
package jufo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/miku/purekit"
	"github.com/miku/purekit/field"
	"github.com/segmentio/encoding/json"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the channel ("kanava") lookup by JUFO identifier.
	DefaultEndpoint = "https://jufo-rest.csc.fi/v1.1/kanava"
	// DefaultRate limits requests per second.
	DefaultRate = 5
)

var (
	ErrNotFound    = errors.New("jufo: not found")
	ErrInvalidJSON = errors.New("jufo: invalid json")
)

// Doer abstracts https://pkg.go.dev/net/http#Client.Do.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client fetches raw channel documents.
type Client struct {
	Endpoint  string
	Client    Doer
	Limiter   *rate.Limiter
	UserAgent string
}

// New returns a client with retries and a request rate limit.
func New(endpoint string, maxRetries int, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = maxRetries
	client.RetryOnHTTP429 = true
	client.Timeout = timeout
	return &Client{
		Endpoint:  endpoint,
		Client:    client,
		Limiter:   rate.NewLimiter(rate.Limit(DefaultRate), 1),
		UserAgent: purekit.AppName + "/" + purekit.Version,
	}
}

// Fetch returns the raw JSON document for a JUFO identifier.
func (c *Client) Fetch(ctx context.Context, id string) ([]byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("jufo: empty identifier")
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	link := strings.TrimRight(c.Endpoint, "/") + "/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	log.WithField("link", link).Debug("jufo: fetching")
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("jufo: HTTP %d while fetching %s", resp.StatusCode, link)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, id)
	}
	return b, nil
}

// Dataset is a decoded channel document. The API returns a list, usually
// with a single channel.
type Dataset []map[string]any

// Parse decodes a channel document, which may be a list or a single object.
func Parse(b []byte) (Dataset, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	switch t := v.(type) {
	case []any:
		var ds Dataset
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				ds = append(ds, m)
			}
		}
		return ds, nil
	case map[string]any:
		return Dataset{t}, nil
	}
	return nil, ErrInvalidJSON
}

// ID returns the JUFO identifier of the last channel.
func (d Dataset) ID() string {
	var id string
	for _, m := range d {
		if s := field.String(m, "Jufo_ID"); s != "" {
			id = s
		}
	}
	return id
}

// Level returns the level of the channel in a given year. A yearly field
// "Level_<year>" takes precedence over the "Jufo_history" ranges. If several
// channels carry a value, the last one wins.
func (d Dataset) Level(year int) (string, bool) {
	var (
		level string
		found bool
	)
	for _, m := range d {
		if s := field.String(m, "Level_"+strconv.Itoa(year)); s != "" {
			level, found = s, true
			continue
		}
		for _, p := range ParseHistory(field.String(m, "Jufo_history")) {
			if p.Contains(year) {
				level, found = p.Level, true
			}
		}
	}
	return level, found
}

// Period is a range of years with a level. To is zero for open ranges.
type Period struct {
	From  int
	To    int
	Level string
}

// Contains reports whether year falls into the period, bounds inclusive.
func (p Period) Contains(year int) bool {
	return year >= p.From && (p.To == 0 || year <= p.To)
}

var historyPattern = regexp.MustCompile(`(\d{4})(\s*-\s*(\d{4})?)?\s*:\s*([0-9A-Za-z]+)`)

// ParseHistory parses level history strings like "2012-2014: 1; 2015-: 2".
// A single year like "2019: 1" is a period of one year.
func ParseHistory(s string) []Period {
	var periods []Period
	for _, m := range historyPattern.FindAllStringSubmatch(s, -1) {
		from, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		p := Period{From: from, Level: m[4]}
		switch {
		case m[2] == "":
			p.To = from
		case m[3] != "":
			to, err := strconv.Atoi(m[3])
			if err != nil {
				continue
			}
			p.To = to
		}
		periods = append(periods, p)
	}
	return periods
}
