// Package ref resolves uuid references of research outputs against the
// reference datasets: persons, external persons, organisations, external
// organisations and journals. A reference to an unknown uuid is not an
// error, it resolves to an empty enrichment.
package ref

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/miku/purekit/dataset"
	"github.com/miku/purekit/schema/pure"
	log "github.com/sirupsen/logrus"
)

// DefaultIdentifierKinds maps identifier kinds, matched as substrings of the
// lower cased identifier type, to output names.
var DefaultIdentifierKinds = map[string]string{
	"employee": "employeeId",
	"orcid":    "orcid",
	"student":  "studentId",
	"masterdb": "masterDbId",
}

// Options for resolving references.
type Options struct {
	// Locales are the preferred locales for names and countries.
	Locales []string
	// IdentifierKinds maps person identifier kinds to output names.
	IdentifierKinds map[string]string
	// RegistryKind is the identifier kind of the journal registry, e.g. "jufo".
	RegistryKind string
}

// PersonInfo is the enrichment for an internal or external person.
type PersonInfo struct {
	UUID      string
	FirstName string
	LastName  string
	Country   string
	// Identifiers by output name, e.g. "orcid", last one of a kind wins.
	Identifiers map[string]string
	// ExternalOrganisations referenced by an external person.
	ExternalOrganisations []string
}

// OrganisationInfo is the enrichment for an organisation.
type OrganisationInfo struct {
	UUID    string
	Name    string
	Type    string
	Country string
}

// JournalInfo is the enrichment for a journal.
type JournalInfo struct {
	UUID       string
	Title      string
	ISSN       string
	Type       string
	Workflow   string
	Country    string
	RegistryID string
}

// Index holds reference datasets keyed by uuid. It is read only after
// construction.
type Index struct {
	opts                  Options
	kinds                 []string
	persons               map[string]*pure.Person
	externalPersons       map[string]*pure.ExternalPerson
	organisations         map[string]*pure.Organisation
	externalOrganisations map[string]*pure.Organisation
	journals              map[string]*pure.Journal
	journalList           []*pure.Journal
}

// Key canonicalizes a uuid, so that differently cased spellings of the same
// uuid match. Values that are not uuids are only trimmed.
func Key(s string) string {
	s = strings.TrimSpace(s)
	if u, err := uuid.Parse(s); err == nil {
		return u.String()
	}
	return s
}

// index keeps the first element per uuid, which is what a linear scan from the
// start of the dataset would find.
func index[T any](name string, xs []T, id func(*T) string) map[string]*T {
	m := make(map[string]*T, len(xs))
	for i := range xs {
		k := Key(id(&xs[i]))
		if k == "" {
			continue
		}
		if _, ok := m[k]; ok {
			log.WithFields(log.Fields{"dataset": name, "uuid": k}).Debug("duplicate uuid, keeping first")
			continue
		}
		m[k] = &xs[i]
	}
	return m
}

// New builds an index over the datasets. Missing datasets are treated as
// empty.
func New(data *dataset.Data, opts Options) *Index {
	if data == nil {
		data = &dataset.Data{}
	}
	if opts.IdentifierKinds == nil {
		opts.IdentifierKinds = DefaultIdentifierKinds
	}
	ix := &Index{
		opts:                  opts,
		persons:               index("persons", data.Persons, func(p *pure.Person) string { return p.UUID }),
		externalPersons:       index("external-persons", data.ExternalPersons, func(p *pure.ExternalPerson) string { return p.UUID }),
		organisations:         index("organisations", data.Organisations, func(o *pure.Organisation) string { return o.UUID }),
		externalOrganisations: index("external-organisations", data.ExternalOrganisations, func(o *pure.Organisation) string { return o.UUID }),
		journals:              index("journals", data.Journals, func(j *pure.Journal) string { return j.UUID }),
	}
	for i := range data.Journals {
		ix.journalList = append(ix.journalList, &data.Journals[i])
	}
	for k := range opts.IdentifierKinds {
		ix.kinds = append(ix.kinds, k)
	}
	sort.Strings(ix.kinds)
	return ix
}

// IdentifierNames returns the sorted output names of person identifiers.
func (ix *Index) IdentifierNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range ix.opts.IdentifierKinds {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// identifiers resolves typed identifiers, later entries win per output name.
func (ix *Index) identifiers(ids []pure.Identifier, into map[string]string) {
	for _, id := range ids {
		value := strings.TrimSpace(string(id.Value))
		if value == "" {
			continue
		}
		kind := id.Kind()
		for _, k := range ix.kinds {
			if strings.Contains(kind, k) {
				into[ix.opts.IdentifierKinds[k]] = value
			}
		}
	}
}

// Person resolves an internal person.
func (ix *Index) Person(id string) (PersonInfo, bool) {
	p, ok := ix.persons[Key(id)]
	if !ok {
		return PersonInfo{}, false
	}
	info := PersonInfo{
		UUID:        p.UUID,
		FirstName:   strings.TrimSpace(p.Name.FirstName),
		LastName:    strings.TrimSpace(p.Name.LastName),
		Identifiers: make(map[string]string),
	}
	if p.ORCID != "" {
		if name, ok := ix.opts.IdentifierKinds["orcid"]; ok {
			info.Identifiers[name] = strings.TrimSpace(p.ORCID)
		}
	}
	ix.identifiers(p.IDs, info.Identifiers)
	return info, true
}

// ExternalPerson resolves an external person.
func (ix *Index) ExternalPerson(id string) (PersonInfo, bool) {
	p, ok := ix.externalPersons[Key(id)]
	if !ok {
		return PersonInfo{}, false
	}
	info := PersonInfo{
		UUID:        p.UUID,
		FirstName:   strings.TrimSpace(p.Name.FirstName),
		LastName:    strings.TrimSpace(p.Name.LastName),
		Country:     p.Country.String(ix.opts.Locales...),
		Identifiers: make(map[string]string),
	}
	ix.identifiers(p.IDs, info.Identifiers)
	for _, o := range p.ExternalOrganisations {
		info.ExternalOrganisations = append(info.ExternalOrganisations, o.UUID)
	}
	return info, true
}

func (ix *Index) organisation(m map[string]*pure.Organisation, id string) (OrganisationInfo, bool) {
	o, ok := m[Key(id)]
	if !ok {
		return OrganisationInfo{}, false
	}
	return OrganisationInfo{
		UUID:    o.UUID,
		Name:    o.Name.String(ix.opts.Locales...),
		Type:    o.Type.String(ix.opts.Locales...),
		Country: o.Country(ix.opts.Locales...),
	}, true
}

// Organisation resolves an internal organisational unit.
func (ix *Index) Organisation(id string) (OrganisationInfo, bool) {
	return ix.organisation(ix.organisations, id)
}

// ExternalOrganisation resolves an external organisation.
func (ix *Index) ExternalOrganisation(id string) (OrganisationInfo, bool) {
	return ix.organisation(ix.externalOrganisations, id)
}

// Journal resolves a journal.
func (ix *Index) Journal(id string) (JournalInfo, bool) {
	j, ok := ix.journals[Key(id)]
	if !ok {
		return JournalInfo{}, false
	}
	return JournalInfo{
		UUID:       j.UUID,
		Title:      j.DisplayTitle(ix.opts.Locales...),
		ISSN:       j.ISSN(),
		Type:       j.Type.String(ix.opts.Locales...),
		Workflow:   j.Workflow.String(ix.opts.Locales...),
		Country:    j.Country.String(ix.opts.Locales...),
		RegistryID: j.Identifier(ix.opts.RegistryKind),
	}, true
}

// Journals returns all journals in input order.
func (ix *Index) Journals() []*pure.Journal {
	return ix.journalList
}
