// Package link derives link tables between research outputs and persons or
// organisations, for registry submissions.
package link

import (
	"fmt"

	"github.com/miku/purekit/flatten"
	"github.com/miku/purekit/schema/pure"
)

// Kinds of link tables.
const (
	Person       = "person"
	Organisation = "organisation"
)

var (
	PersonColumns       = []string{"research_output_uuid", "person_uuid", "external_person_uuid", "author_name"}
	OrganisationColumns = []string{"research_output_uuid", "managingOrganisationalUnit_uuid"}
)

// Columns returns the columns of a link table kind.
func Columns(kind string) ([]string, error) {
	switch kind {
	case Person:
		return PersonColumns, nil
	case Organisation:
		return OrganisationColumns, nil
	}
	return nil, fmt.Errorf("unknown link kind: %s", kind)
}

// Persons returns one row per author or editor with a complete name.
func Persons(ro *pure.ResearchOutput) []flatten.Row {
	var rows []flatten.Row
	for i := range ro.PersonAssociations {
		pa := &ro.PersonAssociations[i]
		if !flatten.Qualifies(pa) || !pa.Name.Complete() {
			continue
		}
		row := flatten.Row{
			"research_output_uuid": ro.UUID,
			"person_uuid":          "",
			"external_person_uuid": "",
			"author_name":          pa.Name.Inverted(),
		}
		if pa.Person != nil {
			row["person_uuid"] = pa.Person.UUID
		}
		if pa.ExternalPerson != nil {
			row["external_person_uuid"] = pa.ExternalPerson.UUID
		}
		rows = append(rows, row)
	}
	return rows
}

// Organisations links a research output to its managing unit. Outputs
// without a managing unit yield no row.
func Organisations(ro *pure.ResearchOutput) []flatten.Row {
	if ro.ManagingOrganisationalUnit == nil || ro.ManagingOrganisationalUnit.UUID == "" {
		return nil
	}
	return []flatten.Row{{
		"research_output_uuid":            ro.UUID,
		"managingOrganisationalUnit_uuid": ro.ManagingOrganisationalUnit.UUID,
	}}
}

// Rows returns the link rows of a kind for all research outputs, in input
// order.
func Rows(kind string, ros []pure.ResearchOutput) ([]flatten.Row, error) {
	var f func(*pure.ResearchOutput) []flatten.Row
	switch kind {
	case Person:
		f = Persons
	case Organisation:
		f = Organisations
	default:
		return nil, fmt.Errorf("unknown link kind: %s", kind)
	}
	var rows []flatten.Row
	for i := range ros {
		rows = append(rows, f(&ros[i])...)
	}
	return rows, nil
}
