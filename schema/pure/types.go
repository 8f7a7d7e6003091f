// Package pure contains types for JSON exports of the Pure research
// information system. Pure changed the shape of localized values between API
// versions; the decoders here accept the legacy list form (one entry per
// locale, each with "value" and "locale"), the newer object form with
// {"text": [...]} and plain strings.
package pure

import (
	"bytes"
	"strings"

	"github.com/miku/purekit/field"
	"github.com/segmentio/encoding/json"
)

// Envelope is the paged list response of the Pure API and the shape of the
// dump files written by the harvester.
type Envelope struct {
	Count           int64             `json:"count,omitempty"`
	Items           []json.RawMessage `json:"items"`
	NavigationLinks []NavigationLink  `json:"navigationLinks,omitempty"`
}

// Next returns the link to the next page, if there is one.
func (e *Envelope) Next() (string, bool) {
	for _, nav := range e.NavigationLinks {
		if nav.Ref == "next" && nav.Href != "" {
			return nav.Href, true
		}
	}
	return "", false
}

// NavigationLink points to a previous or next page.
type NavigationLink struct {
	Ref  string `json:"ref"`
	Href string `json:"href"`
}

// LocaleValue is a single localized string.
type LocaleValue struct {
	Locale    string `json:"locale,omitempty"`
	Value     string `json:"value"`
	Formatted bool   `json:"formatted,omitempty"`
}

// LocalizedText is a list of localized values, e.g. a title in several
// languages.
type LocalizedText []LocaleValue

func (t *LocalizedText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = nil
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = LocalizedText{{Value: s}}
	case '[':
		var vs []LocaleValue
		if err := json.Unmarshal(b, &vs); err != nil {
			return err
		}
		*t = vs
	default:
		var obj struct {
			Text      []LocaleValue `json:"text"`
			Locale    string        `json:"locale"`
			Value     Scalar        `json:"value"`
			Formatted bool          `json:"formatted"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		switch {
		case obj.Text != nil:
			*t = obj.Text
		case obj.Value != "":
			*t = LocalizedText{{Locale: obj.Locale, Value: string(obj.Value), Formatted: obj.Formatted}}
		default:
			*t = nil
		}
	}
	return nil
}

// Entry resolves a single entry, trying the preferred locales in order and
// falling back to the last entry.
func (t LocalizedText) Entry(prefs ...string) (LocaleValue, bool) {
	return field.ResolveLocale(t, func(v LocaleValue) string { return v.Locale }, prefs...)
}

// String resolves the text for the preferred locales, see Entry.
func (t LocalizedText) String(prefs ...string) string {
	v, _ := t.Entry(prefs...)
	return v.Value
}

// ClassifiedValue is a value from a Pure classification scheme, identified by
// a URI like "/dk/atira/pure/core/languages/fi_FI" and carrying a localized
// display term.
type ClassifiedValue struct {
	URI  string        `json:"uri"`
	Term LocalizedText `json:"term"`
}

func (c *ClassifiedValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		c.URI, c.Term = "", LocalizedText{{Value: s}}
		return nil
	}
	var raw struct {
		URI         string        `json:"uri"`
		Term        LocalizedText `json:"term"`
		Value       Scalar        `json:"value"`
		Locale      string        `json:"locale"`
		Step        string        `json:"step"`
		Description LocalizedText `json:"description"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.URI, c.Term = raw.URI, raw.Term
	if c.URI == "" && raw.Step != "" {
		// workflow objects name their step instead of a classification uri
		c.URI = raw.Step
	}
	if len(c.Term) == 0 {
		switch {
		case raw.Value != "":
			c.Term = LocalizedText{{Locale: raw.Locale, Value: string(raw.Value)}}
		case len(raw.Description) > 0:
			c.Term = raw.Description
		}
	}
	return nil
}

// Classification holds at most one classified value, but the legacy API
// repeats the value once per requested locale, so it is a list.
type Classification []ClassifiedValue

func (c *Classification) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = nil
		return nil
	}
	if b[0] == '[' {
		var vs []ClassifiedValue
		if err := json.Unmarshal(b, &vs); err != nil {
			return err
		}
		*c = vs
		return nil
	}
	var v ClassifiedValue
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Classification{v}
	return nil
}

type classifiedTerm struct {
	uri string
	LocaleValue
}

func (c Classification) terms() []classifiedTerm {
	var result []classifiedTerm
	for _, v := range c {
		if len(v.Term) == 0 {
			result = append(result, classifiedTerm{uri: v.URI})
			continue
		}
		for _, t := range v.Term {
			result = append(result, classifiedTerm{uri: v.URI, LocaleValue: t})
		}
	}
	return result
}

// String returns the display term, resolved by locale preference, last entry
// wins otherwise.
func (c Classification) String(prefs ...string) string {
	t, _ := field.ResolveLocale(c.terms(), func(t classifiedTerm) string { return t.Locale }, prefs...)
	return t.Value
}

// URI returns the classification URI of the last entry.
func (c Classification) URI() string {
	v, _ := field.Last(c)
	return v.URI
}

// Tail returns the last URI path segment, e.g. "fi_FI" for a language.
func (c Classification) Tail() string {
	return field.URITail(c.URI())
}

// Scalar is a string that may be encoded as a JSON string, number or boolean.
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Scalar(v)
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		// nested value objects, e.g. {"value": "12"}
		var t LocalizedText
		if err := json.Unmarshal(b, &t); err != nil {
			return err
		}
		*s = Scalar(t.String())
		return nil
	}
	*s = Scalar(string(b))
	return nil
}

// Ref is a reference to another Pure entity, with an optional inline copy of
// its name.
type Ref struct {
	UUID string         `json:"uuid"`
	Name LocalizedText  `json:"name"`
	Type Classification `json:"type"`
}

// PersonName is the name used for a person on a particular output.
type PersonName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Complete reports whether both first and last name are present.
func (n PersonName) Complete() bool {
	return strings.TrimSpace(n.FirstName) != "" && strings.TrimSpace(n.LastName) != ""
}

// Inverted renders "Last, First".
func (n PersonName) Inverted() string {
	return strings.TrimSpace(n.LastName) + ", " + strings.TrimSpace(n.FirstName)
}

// PersonAssociation links a research output to an internal or external
// person in some role.
type PersonAssociation struct {
	PureID                int64          `json:"pureId,omitempty"`
	Name                  PersonName     `json:"name"`
	PersonRole            Classification `json:"personRole"`
	Person                *Ref           `json:"person,omitempty"`
	ExternalPerson        *Ref           `json:"externalPerson,omitempty"`
	OrganisationalUnits   []Ref          `json:"organisationalUnits,omitempty"`
	ExternalOrganisations []Ref          `json:"externalOrganisations,omitempty"`
	Country               Classification `json:"country,omitempty"`
}

// Role returns the normalized role, the last segment of the role URI in lower
// case, e.g. "author", or the lower cased display value, if there is no URI.
func (pa *PersonAssociation) Role() string {
	if tail := pa.PersonRole.Tail(); tail != "" {
		return strings.ToLower(tail)
	}
	return strings.ToLower(strings.TrimSpace(pa.PersonRole.String()))
}

// Roles returns the lower cased URI tail and display value of every role
// entry, in order. Localized lists repeat the role once per locale.
func (pa *PersonAssociation) Roles() []string {
	var roles []string
	for _, t := range pa.PersonRole.terms() {
		if tail := field.URITail(t.uri); tail != "" {
			roles = append(roles, strings.ToLower(tail))
		}
		if v := strings.TrimSpace(t.Value); v != "" {
			roles = append(roles, strings.ToLower(v))
		}
	}
	return roles
}

// PublicationDate is a partial date.
type PublicationDate struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// PublicationStatus is one step in the publication history of an output.
type PublicationStatus struct {
	Current           bool            `json:"current"`
	PublicationStatus Classification  `json:"publicationStatus"`
	PublicationDate   PublicationDate `json:"publicationDate"`
}

// ElectronicVersion describes a file or link of an output.
type ElectronicVersion struct {
	DOI        string         `json:"doi,omitempty"`
	Link       string         `json:"link,omitempty"`
	AccessType Classification `json:"accessType,omitempty"`
}

// JournalAssociation is the inline reference to the journal of an article.
type JournalAssociation struct {
	Title   LocalizedText `json:"title"`
	ISSN    LocalizedText `json:"issn"`
	Journal *Ref          `json:"journal,omitempty"`
}

// LegacyKeyword is a keyword in the flat "keywords" list of older exports.
type LegacyKeyword struct {
	URI    string `json:"uri"`
	Value  string `json:"value"`
	Locale string `json:"locale,omitempty"`
}

// StructuredKeyword is a keyword from a classification scheme.
type StructuredKeyword struct {
	URI  string        `json:"uri"`
	Term LocalizedText `json:"term"`
}

// FreeKeywords are free text keywords in one locale.
type FreeKeywords struct {
	Locale       string   `json:"locale,omitempty"`
	FreeKeywords []string `json:"freeKeywords"`
}

// KeywordContainer holds a structured keyword and free text siblings.
type KeywordContainer struct {
	StructuredKeyword *StructuredKeyword `json:"structuredKeyword,omitempty"`
	FreeKeywords      []FreeKeywords     `json:"freeKeywords,omitempty"`
}

// KeywordGroup groups keywords of one configured keyword scheme.
type KeywordGroup struct {
	LogicalName       string             `json:"logicalName,omitempty"`
	Type              Classification     `json:"type,omitempty"`
	Keywords          []LegacyKeyword    `json:"keywords,omitempty"`
	KeywordContainers []KeywordContainer `json:"keywordContainers,omitempty"`
}

// Info carries bookkeeping timestamps.
type Info struct {
	CreatedDate  string `json:"createdDate,omitempty"`
	ModifiedDate string `json:"modifiedDate,omitempty"`
}

// ResearchOutput is a publication or other research output.
type ResearchOutput struct {
	UUID                       string              `json:"uuid"`
	PureID                     int64               `json:"pureId,omitempty"`
	Title                      LocalizedText       `json:"title"`
	SubTitle                   LocalizedText       `json:"subTitle,omitempty"`
	Abstract                   LocalizedText       `json:"abstract,omitempty"`
	Type                       Classification      `json:"type"`
	Category                   Classification      `json:"category,omitempty"`
	AssessmentType             Classification      `json:"assessmentType,omitempty"`
	Workflow                   Classification      `json:"workflow,omitempty"`
	OpenAccessPermission       Classification      `json:"openAccessPermission,omitempty"`
	Language                   Classification      `json:"language,omitempty"`
	Volume                     Scalar              `json:"volume,omitempty"`
	Pages                      Scalar              `json:"pages,omitempty"`
	Edition                    Scalar              `json:"edition,omitempty"`
	JournalNumber              Scalar              `json:"journalNumber,omitempty"`
	ArticleNumber              Scalar              `json:"articleNumber,omitempty"`
	TotalNumberOfAuthors       *int                `json:"totalNumberOfAuthors,omitempty"`
	TotalScopusCitations       *int                `json:"totalScopusCitations,omitempty"`
	ISBNs                      []string            `json:"isbns,omitempty"`
	ElectronicISBNs            []string            `json:"electronicIsbns,omitempty"`
	PublicationStatuses        []PublicationStatus `json:"publicationStatuses,omitempty"`
	ElectronicVersions         []ElectronicVersion `json:"electronicVersions,omitempty"`
	PersonAssociations         []PersonAssociation `json:"personAssociations,omitempty"`
	ManagingOrganisationalUnit *Ref                `json:"managingOrganisationalUnit,omitempty"`
	JournalAssociation         *JournalAssociation `json:"journalAssociation,omitempty"`
	KeywordGroups              []KeywordGroup      `json:"keywordGroups,omitempty"`
	Info                       Info                `json:"info,omitempty"`
}

// Identifier is a typed identifier, e.g. an employee number or an ORCID.
type Identifier struct {
	Type  Classification `json:"type"`
	Value Scalar         `json:"value"`
}

// Kind returns the lower cased last segment of the identifier type URI, or
// the lower cased type term, if there is no URI.
func (id Identifier) Kind() string {
	if tail := id.Type.Tail(); tail != "" {
		return strings.ToLower(tail)
	}
	return strings.ToLower(strings.TrimSpace(id.Type.String()))
}

// Person is an internal person.
type Person struct {
	UUID  string       `json:"uuid"`
	Name  PersonName   `json:"name"`
	ORCID string       `json:"orcid,omitempty"`
	IDs   []Identifier `json:"ids,omitempty"`
}

// ExternalPerson is a person outside the institution.
type ExternalPerson struct {
	UUID                  string         `json:"uuid"`
	Name                  PersonName     `json:"name"`
	Country               Classification `json:"country,omitempty"`
	ExternalOrganisations []Ref          `json:"externalOrganisations,omitempty"`
	IDs                   []Identifier   `json:"ids,omitempty"`
}

// Address is a postal address.
type Address struct {
	City    string         `json:"city,omitempty"`
	Country Classification `json:"country,omitempty"`
}

// Organisation is an internal organisational unit or an external
// organisation. Internal units list addresses, external ones have a single
// address.
type Organisation struct {
	UUID      string         `json:"uuid"`
	Name      LocalizedText  `json:"name"`
	Type      Classification `json:"type,omitempty"`
	Addresses []Address      `json:"addresses,omitempty"`
	Address   *Address       `json:"address,omitempty"`
	IDs       []Identifier   `json:"ids,omitempty"`
}

// Country returns the country of the postal address, last address wins.
func (o *Organisation) Country(prefs ...string) string {
	var country string
	for _, a := range o.Addresses {
		if s := a.Country.String(prefs...); s != "" {
			country = s
		}
	}
	if o.Address != nil {
		if s := o.Address.Country.String(prefs...); s != "" {
			country = s
		}
	}
	return country
}

// Journal is a journal or series.
type Journal struct {
	UUID          string           `json:"uuid"`
	Title         LocalizedText    `json:"title,omitempty"`
	Titles        []LocalizedText  `json:"titles,omitempty"`
	ISSNs         []LocalizedText  `json:"issns,omitempty"`
	Type          Classification   `json:"type,omitempty"`
	Workflow      Classification   `json:"workflow,omitempty"`
	Country       Classification   `json:"country,omitempty"`
	IDs           []Identifier     `json:"ids,omitempty"`
	ScopusMetrics []map[string]any `json:"scopusMetrics,omitempty"`
}

// DisplayTitle returns the title, preferring the single title field over the
// last entry of the title list.
func (j *Journal) DisplayTitle(prefs ...string) string {
	if s := j.Title.String(prefs...); s != "" {
		return s
	}
	if t, ok := field.Last(j.Titles); ok {
		return t.String(prefs...)
	}
	return ""
}

// ISSN returns the last listed ISSN.
func (j *Journal) ISSN() string {
	if v, ok := field.Last(j.ISSNs); ok {
		return v.String()
	}
	return ""
}

// Identifier returns the value of the last identifier of a given kind, e.g.
// "jufo". The kind matches the identifier kind as a substring, as sites name
// their identifier sources differently, e.g. "jufoid" or "jufo".
func (j *Journal) Identifier(kind string) string {
	var value string
	kind = strings.ToLower(kind)
	for _, id := range j.IDs {
		if kind != "" && strings.Contains(id.Kind(), kind) && id.Value != "" {
			value = strings.TrimSpace(string(id.Value))
		}
	}
	return value
}
