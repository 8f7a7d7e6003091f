// Package flatten turns research outputs into flat rows. A research output
// yields one row per author or editor; all rows of an output share the same
// base fields and differ in the person fields only. An output without any
// author or editor yields a single row with empty person fields.
package flatten

import (
	"errors"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/miku/purekit/dateutil"
	"github.com/miku/purekit/field"
	"github.com/miku/purekit/keyword"
	"github.com/miku/purekit/metrics"
	"github.com/miku/purekit/normal"
	"github.com/miku/purekit/ref"
	"github.com/miku/purekit/schema/pure"
	log "github.com/sirupsen/logrus"
)

var ErrEmptyDoc = errors.New("empty doc")

// BaseColumns are the fields shared by all rows of a research output.
var BaseColumns = []string{
	"uuid",
	"pureId",
	"title",
	"subTitle",
	"type",
	"typeCode",
	"typeGroup",
	"category_value",
	"assessmentType_value",
	"workflow",
	"openAccessPermission_value",
	"language",
	"abstract_formatted",
	"abstract_value",
	"abstract_text",
	"publicationStatuses_publicationDate_year",
	"publicationStatuses_current",
	"publicationStatuses_publicationStatus_value",
	"volume",
	"pages",
	"edition",
	"journalNumber",
	"articleNumber",
	"electronicVersions_doi",
	"isbns",
	"totalNumberOfAuthors",
	"totalScopusCitations",
	"numberOfInternalAuthors",
	"numberOfExternalAuthors",
	"createdDate",
	"modifiedDate",
	"managingOrganisationalUnit_uuid",
	"managingOrganisationalUnit_name_value",
	"managingOrganisationalUnit_country",
	"journalAssociation_issn_value",
	"journalAssociation_title_value",
	"journalAssociation_journal_name_value",
	"journalAssociation_journal_type_value",
	"journalAssociation_journal_uuid",
	"journal_title",
	"journal_issn",
	"journal_type",
	"journal_workflow",
	"journal_country",
	"journal_registryId",
}

// PersonColumns are the fields of a single author or editor.
var PersonColumns = []string{
	"personAssociations_name_firstName",
	"personAssociations_name_lastName",
	"personAssociations_personRole_value",
	"personAssociations_role",
	"personAssociations_country_value",
	"personAssociations_person_uuid",
	"personAssociations_person_name_value",
	"personAssociations_externalPerson_uuid",
	"personAssociations_organisationalUnits_uuid",
	"personAssociations_organisationalUnits_name_value",
	"personAssociations_organisationalUnits_country",
	"personAssociations_externalOrganisations_uuid",
	"personAssociations_externalOrganisations_name_value",
	"personAssociations_externalOrganisations_country",
	"externalPerson_country",
}

// IdentifierColumn names the column of a person identifier, e.g.
// "person_orcid".
func IdentifierColumn(name string) string {
	return "person_" + name
}

// Row is a flat record. Every column is present, absent values are empty
// strings.
type Row map[string]string

// Overlay returns a new row with the fields of r, updated with fields. Neither
// r nor fields are modified.
func (r Row) Overlay(fields map[string]string) Row {
	result := make(Row, len(r)+len(fields))
	for k, v := range r {
		result[k] = v
	}
	for k, v := range fields {
		result[k] = v
	}
	return result
}

// Options are the run settings.
type Options struct {
	// Locales are the preferred locales for localized values.
	Locales  []string
	Keywords keyword.Options
}

// Flattener resolves references and metrics for research outputs. It holds
// no state besides its read only inputs.
type Flattener struct {
	Index   *ref.Index
	Metrics *metrics.Table
	Options Options
}

// New returns a flattener. A nil index resolves nothing, a nil table adds no
// metric columns.
func New(ix *ref.Index, table *metrics.Table, opts Options) *Flattener {
	if ix == nil {
		ix = ref.New(nil, ref.Options{Locales: opts.Locales})
	}
	return &Flattener{Index: ix, Metrics: table, Options: opts}
}

func (f *Flattener) identifierColumns() []string {
	var columns []string
	for _, name := range f.Index.IdentifierNames() {
		columns = append(columns, IdentifierColumn(name))
	}
	return columns
}

// RunColumns lists the columns that depend on the options and the loaded
// reference data: keyword, metric and person identifier columns.
func (f *Flattener) RunColumns() []string {
	var columns []string
	columns = append(columns, f.Options.Keywords.Columns()...)
	if f.Metrics != nil {
		columns = append(columns, f.Metrics.Columns()...)
	}
	return append(columns, f.identifierColumns()...)
}

// Columns lists all fields of a row, in a stable order.
func (f *Flattener) Columns() []string {
	var columns []string
	columns = append(columns, BaseColumns...)
	columns = append(columns, f.Options.Keywords.Columns()...)
	if f.Metrics != nil {
		columns = append(columns, f.Metrics.Columns()...)
	}
	columns = append(columns, PersonColumns...)
	columns = append(columns, f.identifierColumns()...)
	return columns
}

// Qualifies reports whether an association contributes a row, that is, any
// of its role entries names an author or editor.
func Qualifies(pa *pure.PersonAssociation) bool {
	_, ok := qualifyingRole(pa)
	return ok
}

func qualifyingRole(pa *pure.PersonAssociation) (string, bool) {
	for _, role := range pa.Roles() {
		switch role {
		case "author", "editor":
			return role, true
		}
	}
	return "", false
}

// AuthorCounts returns the number of internal and external authors. External
// authors are qualifying associations with an external person; the internal
// count is the remainder of the total, never below zero.
func AuthorCounts(ro *pure.ResearchOutput) (internal, external int) {
	for i := range ro.PersonAssociations {
		pa := &ro.PersonAssociations[i]
		if Qualifies(pa) && pa.ExternalPerson != nil {
			external++
		}
	}
	var total int
	if ro.TotalNumberOfAuthors != nil {
		total = *ro.TotalNumberOfAuthors
	}
	return max(0, total-external), external
}

// Rows flattens a research output into one row per qualifying association,
// in association order, or a single row if none qualifies.
func (f *Flattener) Rows(ro *pure.ResearchOutput) ([]Row, error) {
	if ro == nil {
		return nil, ErrEmptyDoc
	}
	base := f.Base(ro)
	var rows []Row
	for i := range ro.PersonAssociations {
		pa := &ro.PersonAssociations[i]
		if !Qualifies(pa) {
			continue
		}
		rows = append(rows, base.Overlay(f.Person(ro, pa)))
	}
	if len(rows) == 0 {
		rows = append(rows, base)
	}
	return rows, nil
}

// Each flattens research outputs in order and calls fn for every row.
func (f *Flattener) Each(ros []pure.ResearchOutput, fn func(Row) error) error {
	for i := range ros {
		rows, err := f.Rows(&ros[i])
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := fn(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Base computes the fields shared by all rows of a research output, with
// empty person fields.
func (f *Flattener) Base(ro *pure.ResearchOutput) Row {
	var (
		prefs = f.Options.Locales
		row   = make(Row)
	)
	for _, c := range BaseColumns {
		row[c] = ""
	}
	for _, c := range PersonColumns {
		row[c] = ""
	}
	for _, c := range f.identifierColumns() {
		row[c] = ""
	}
	row["uuid"] = ro.UUID
	if ro.PureID != 0 {
		row["pureId"] = strconv.FormatInt(ro.PureID, 10)
	}
	row["title"] = ro.Title.String(prefs...)
	row["subTitle"] = ro.SubTitle.String(prefs...)
	row["type"] = ro.Type.String(prefs...)
	row["typeCode"] = ro.Type.Tail()
	row["typeGroup"] = field.URISegment(ro.Type.URI(), 1)
	row["category_value"] = ro.Category.String(prefs...)
	row["assessmentType_value"] = ro.AssessmentType.String(prefs...)
	row["workflow"] = ro.Workflow.String(prefs...)
	row["openAccessPermission_value"] = ro.OpenAccessPermission.String(prefs...)
	row["language"] = normal.Language(ro.Language.Tail())
	if abstract, ok := ro.Abstract.Entry(prefs...); ok {
		row["abstract_formatted"] = strconv.FormatBool(abstract.Formatted)
		row["abstract_value"] = abstract.Value
		row["abstract_text"] = plainText(abstract.Value, abstract.Formatted)
	}
	if ps, ok := field.Last(ro.PublicationStatuses); ok {
		if ps.PublicationDate.Year != 0 {
			row["publicationStatuses_publicationDate_year"] = strconv.Itoa(ps.PublicationDate.Year)
		}
		row["publicationStatuses_current"] = strconv.FormatBool(ps.Current)
		row["publicationStatuses_publicationStatus_value"] = ps.PublicationStatus.String(prefs...)
	}
	row["volume"] = string(ro.Volume)
	row["pages"] = string(ro.Pages)
	row["edition"] = string(ro.Edition)
	row["journalNumber"] = string(ro.JournalNumber)
	row["articleNumber"] = string(ro.ArticleNumber)
	for _, ev := range ro.ElectronicVersions {
		if ev.DOI != "" {
			row["electronicVersions_doi"] = strings.TrimSpace(ev.DOI)
		}
	}
	row["isbns"] = isbns(ro)
	if ro.TotalNumberOfAuthors != nil {
		row["totalNumberOfAuthors"] = strconv.Itoa(*ro.TotalNumberOfAuthors)
	}
	if ro.TotalScopusCitations != nil {
		row["totalScopusCitations"] = strconv.Itoa(*ro.TotalScopusCitations)
	}
	internal, external := AuthorCounts(ro)
	row["numberOfInternalAuthors"] = strconv.Itoa(internal)
	row["numberOfExternalAuthors"] = strconv.Itoa(external)
	row["createdDate"] = dateutil.Day(ro.Info.CreatedDate)
	row["modifiedDate"] = dateutil.Day(ro.Info.ModifiedDate)
	if mou := ro.ManagingOrganisationalUnit; mou != nil {
		row["managingOrganisationalUnit_uuid"] = mou.UUID
		row["managingOrganisationalUnit_name_value"] = mou.Name.String(prefs...)
		if org, ok := f.Index.Organisation(mou.UUID); ok {
			if row["managingOrganisationalUnit_name_value"] == "" {
				row["managingOrganisationalUnit_name_value"] = org.Name
			}
			row["managingOrganisationalUnit_country"] = org.Country
		}
	}
	var journalUUID string
	if ja := ro.JournalAssociation; ja != nil {
		row["journalAssociation_issn_value"] = ja.ISSN.String(prefs...)
		row["journalAssociation_title_value"] = ja.Title.String(prefs...)
		if ja.Journal != nil {
			journalUUID = ja.Journal.UUID
			row["journalAssociation_journal_name_value"] = ja.Journal.Name.String(prefs...)
			row["journalAssociation_journal_type_value"] = ja.Journal.Type.String(prefs...)
			row["journalAssociation_journal_uuid"] = ja.Journal.UUID
		}
	}
	if journal, ok := f.Index.Journal(journalUUID); ok {
		row["journal_title"] = journal.Title
		row["journal_issn"] = journal.ISSN
		row["journal_type"] = journal.Type
		row["journal_workflow"] = journal.Workflow
		row["journal_country"] = journal.Country
		row["journal_registryId"] = journal.RegistryID
	} else if journalUUID != "" {
		log.WithFields(log.Fields{"uuid": ro.UUID, "journal": journalUUID}).Debug("journal not found")
	}
	for k, v := range keyword.Pivot(ro, f.Options.Keywords) {
		row[k] = v
	}
	if f.Metrics != nil {
		for k, v := range f.Metrics.Fields(journalUUID) {
			row[k] = v
		}
	}
	return row
}

// Person computes the person fields of an association.
func (f *Flattener) Person(ro *pure.ResearchOutput, pa *pure.PersonAssociation) map[string]string {
	prefs := f.Options.Locales
	role, ok := qualifyingRole(pa)
	if !ok {
		role = pa.Role()
	}
	fields := map[string]string{
		"personAssociations_name_firstName":   strings.TrimSpace(pa.Name.FirstName),
		"personAssociations_name_lastName":    strings.TrimSpace(pa.Name.LastName),
		"personAssociations_personRole_value": pa.PersonRole.String(prefs...),
		"personAssociations_role":             role,
		"personAssociations_country_value":    pa.Country.String(prefs...),
	}
	var identifiers map[string]string
	if p := pa.Person; p != nil {
		fields["personAssociations_person_uuid"] = p.UUID
		fields["personAssociations_person_name_value"] = p.Name.String(prefs...)
		if info, ok := f.Index.Person(p.UUID); ok {
			identifiers = info.Identifiers
			if fields["personAssociations_person_name_value"] == "" {
				fields["personAssociations_person_name_value"] = strings.TrimSpace(info.FirstName + " " + info.LastName)
			}
		} else {
			log.WithFields(log.Fields{"uuid": ro.UUID, "person": p.UUID}).Debug("person not found")
		}
	}
	if p := pa.ExternalPerson; p != nil {
		fields["personAssociations_externalPerson_uuid"] = p.UUID
		if info, ok := f.Index.ExternalPerson(p.UUID); ok {
			fields["externalPerson_country"] = info.Country
			if identifiers == nil {
				identifiers = info.Identifiers
			}
		} else {
			log.WithFields(log.Fields{"uuid": ro.UUID, "externalPerson": p.UUID}).Debug("external person not found")
		}
	}
	for name, value := range identifiers {
		fields[IdentifierColumn(name)] = value
	}
	// several units are possible, the last one wins
	if ou, ok := field.Last(pa.OrganisationalUnits); ok {
		fields["personAssociations_organisationalUnits_uuid"] = ou.UUID
		fields["personAssociations_organisationalUnits_name_value"] = ou.Name.String(prefs...)
		if org, ok := f.Index.Organisation(ou.UUID); ok {
			if ou.Name.String(prefs...) == "" {
				fields["personAssociations_organisationalUnits_name_value"] = org.Name
			}
			fields["personAssociations_organisationalUnits_country"] = org.Country
		}
	}
	if eo, ok := field.Last(pa.ExternalOrganisations); ok {
		fields["personAssociations_externalOrganisations_uuid"] = eo.UUID
		fields["personAssociations_externalOrganisations_name_value"] = eo.Name.String(prefs...)
		if org, ok := f.Index.ExternalOrganisation(eo.UUID); ok {
			if eo.Name.String(prefs...) == "" {
				fields["personAssociations_externalOrganisations_name_value"] = org.Name
			}
			fields["personAssociations_externalOrganisations_country"] = org.Country
		}
	}
	return fields
}

// isbns joins print and electronic ISBNs. The lists also contain ISSNs, which
// are shorter than ten characters and dropped.
func isbns(ro *pure.ResearchOutput) string {
	var result []string
	for _, list := range [][]string{ro.ISBNs, ro.ElectronicISBNs} {
		for _, s := range list {
			if s = strings.TrimSpace(s); len(s) >= 10 {
				result = append(result, s)
			}
		}
	}
	return strings.Join(result, ",")
}

// plainText strips markup from formatted values.
func plainText(s string, formatted bool) string {
	if !formatted {
		return normal.CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return normal.CollapseSpace(s)
	}
	return normal.CollapseSpace(doc.Text())
}
