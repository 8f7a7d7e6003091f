// Package dataset loads Pure dump files, as written by the harvester, into
// memory. A dump is a JSON object with an "items" list, optionally compressed.
package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/miku/purekit/schema/pure"
	"github.com/miku/purekit/xio"
	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrNoItems = errors.New("dataset: no items list")

// Data holds all datasets of a run. It is not modified after loading.
type Data struct {
	ResearchOutputs       []pure.ResearchOutput
	Persons               []pure.Person
	ExternalPersons       []pure.ExternalPerson
	Organisations         []pure.Organisation
	ExternalOrganisations []pure.Organisation
	Journals              []pure.Journal
}

// Files names the dump files to load. Only research outputs are required,
// reference datasets with an empty name are left empty. A named file that
// does not exist is an error.
type Files struct {
	ResearchOutputs       string `mapstructure:"research-outputs"`
	Persons               string `mapstructure:"persons"`
	ExternalPersons       string `mapstructure:"external-persons"`
	Organisations         string `mapstructure:"organisations"`
	ExternalOrganisations string `mapstructure:"external-organisations"`
	Journals              string `mapstructure:"journals"`
}

// Load reads a dump file and decodes its items into values of type T.
func Load[T any](filename string) ([]T, error) {
	rc, err := xio.Open(filename)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var envelope pure.Envelope
	if err := json.NewDecoder(rc).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if envelope.Items == nil {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoItems)
	}
	result := make([]T, len(envelope.Items))
	for i, raw := range envelope.Items {
		if err := json.Unmarshal(raw, &result[i]); err != nil {
			return nil, fmt.Errorf("%s: item %d: %w", filename, i, err)
		}
	}
	log.WithFields(log.Fields{"file": filename, "items": len(result)}).Info("loaded")
	return result, nil
}

// load into dst, if a filename is given.
func load[T any](ctx context.Context, filename string, dst *[]T) error {
	if filename == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := Load[T](filename)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// LoadAll loads the datasets concurrently. Any failure is fatal, as joins
// against an incomplete reference set would be meaningless.
func LoadAll(ctx context.Context, files Files) (*Data, error) {
	if files.ResearchOutputs == "" {
		return nil, fmt.Errorf("dataset: research outputs file required")
	}
	var data Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return load(gctx, files.ResearchOutputs, &data.ResearchOutputs) })
	g.Go(func() error { return load(gctx, files.Persons, &data.Persons) })
	g.Go(func() error { return load(gctx, files.ExternalPersons, &data.ExternalPersons) })
	g.Go(func() error { return load(gctx, files.Organisations, &data.Organisations) })
	g.Go(func() error { return load(gctx, files.ExternalOrganisations, &data.ExternalOrganisations) })
	g.Go(func() error { return load(gctx, files.Journals, &data.Journals) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}
