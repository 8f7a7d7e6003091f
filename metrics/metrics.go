// Package metrics builds per journal and per year metric values, from the
// metric history embedded in journal records and from the JUFO registry.
package metrics

import (
	"context"
	"strconv"

	"github.com/miku/purekit/dateutil"
	"github.com/miku/purekit/field"
	"github.com/miku/purekit/jufo"
	"github.com/miku/purekit/ref"
	"github.com/miku/purekit/schema/pure"
	log "github.com/sirupsen/logrus"
)

// DefaultFamilies are the metrics found in the Scopus metric history of a
// journal.
var DefaultFamilies = []string{"citeScore", "sjr", "snip"}

// ExternalFamily names the registry level family.
const ExternalFamily = "jufo"

// Source returns the raw registry document for an identifier, e.g. a
// cache.Cached wrapping a jufo.Client.
type Source interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// Options configures the overlay.
type Options struct {
	// Families are the embedded metric families.
	Families []string
	// External is the registry family, empty to disable lookups.
	External string
	// RegistryKind is the journal identifier kind used for lookups.
	RegistryKind string
	// Window limits the years.
	Window dateutil.Window
}

// Key returns the field name of a family and year, e.g. "sjr_2020".
func Key(family string, year int) string {
	return family + "_" + strconv.Itoa(year)
}

// families returns the configured families followed by the external one,
// each once.
func (o Options) families() []string {
	var fs []string
	seen := make(map[string]bool)
	for _, f := range append(append([]string{}, o.Families...), o.External) {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		fs = append(fs, f)
	}
	return fs
}

// Columns lists all keys, family by family, years ascending.
func (o Options) Columns() []string {
	var columns []string
	for _, f := range o.families() {
		for _, y := range o.Window.List() {
			columns = append(columns, Key(f, y))
		}
	}
	return columns
}

// Table maps journal uuids to metric fields. Each journal carries every key
// of the configured columns, values may be empty.
type Table struct {
	columns []string
	rows    map[string]map[string]string
}

// Columns returns the keys every row carries.
func (t *Table) Columns() []string {
	return t.columns
}

// Len returns the number of journals.
func (t *Table) Len() int {
	return len(t.rows)
}

// Fields returns a fresh map with the metric fields of a journal. Unknown
// journals get all keys with empty values.
func (t *Table) Fields(journalUUID string) map[string]string {
	result := make(map[string]string, len(t.columns))
	for _, c := range t.columns {
		result[c] = ""
	}
	for k, v := range t.rows[ref.Key(journalUUID)] {
		result[k] = v
	}
	return result
}

type fetched struct {
	ds  jufo.Dataset
	err error
}

// Build computes the table for the journals. Registry lookups go through src
// at most once per identifier; a failed lookup is logged and leaves the
// values of that journal empty. The src may be nil, if no external family is
// configured.
func Build(ctx context.Context, journals []*pure.Journal, opts Options, src Source) *Table {
	t := &Table{
		columns: opts.Columns(),
		rows:    make(map[string]map[string]string),
	}
	seen := make(map[string]fetched)
	lookup := func(id string) (jufo.Dataset, error) {
		if f, ok := seen[id]; ok {
			return f.ds, f.err
		}
		b, err := src.Fetch(ctx, id)
		var ds jufo.Dataset
		if err == nil {
			ds, err = jufo.Parse(b)
		}
		seen[id] = fetched{ds: ds, err: err}
		return ds, err
	}
	years := opts.Window.List()
	for _, j := range journals {
		key := ref.Key(j.UUID)
		if key == "" {
			continue
		}
		if _, ok := t.rows[key]; ok {
			continue
		}
		row := make(map[string]string, len(t.columns))
		for _, c := range t.columns {
			row[c] = ""
		}
		for _, m := range j.ScopusMetrics {
			v, ok := field.Lookup(m, "year")
			if !ok {
				continue
			}
			y, ok := field.Float(v)
			if !ok || !opts.Window.Contains(int(y)) {
				continue
			}
			for _, f := range opts.Families {
				if s := field.String(m, f); s != "" {
					row[Key(f, int(y))] = s
				}
			}
		}
		if opts.External != "" && src != nil {
			id := j.Identifier(opts.RegistryKind)
			if id == "" {
				log.WithField("journal", j.UUID).Trace("no registry identifier")
			} else if ds, err := lookup(id); err != nil {
				log.WithFields(log.Fields{"journal": j.UUID, opts.External: id}).Warnf("lookup failed: %v", err)
			} else {
				for _, y := range years {
					if level, ok := ds.Level(y); ok {
						row[Key(opts.External, y)] = level
					}
				}
			}
		}
		t.rows[key] = row
	}
	return t
}
