// Package keyword pivots taxonomy coded keywords of a research output into
// columns. Pure stores keywords in groups, either as legacy lists of tagged
// values or as containers of a structured keyword with free text siblings.
//
// A keyword belongs to the taxonomy code "abc", if its URI contains
// "dk/atira/pure/keywords/abc/". Subject codes (fields of science) live under
// "dk/atira/pure/core/keywords/" and are validated as numbers.
package keyword

import (
	"strings"

	"github.com/miku/purekit/field"
	"github.com/miku/purekit/normal"
	"github.com/miku/purekit/schema/pure"
	log "github.com/sirupsen/logrus"
)

const (
	Namespace     = "dk/atira/pure/keywords/"
	CoreNamespace = "dk/atira/pure/core/keywords/"
	// CoreColumn carries the last valid subject code regardless of bucket.
	CoreColumn = "core"
	// DefaultSelfArchivedCode is the switch whose companion free text is the
	// address of the self-archived copy.
	DefaultSelfArchivedCode = "selfarchived"
)

// DefaultCoreBuckets are the main classes of the Finnish field of science
// classification.
var DefaultCoreBuckets = []string{"1", "2", "3", "4", "5", "6"}

var truthy = map[string]bool{
	"1":     true,
	"true":  true,
	"yes":   true,
	"kylla": true,
	"kyllä": true,
}

// Truthy reports whether a switch value means yes.
func Truthy(s string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(s))]
}

// Options configures the pivot.
type Options struct {
	// Codes are the taxonomy codes to pivot, one column each.
	Codes []string
	// CoreBuckets are subject code prefixes, one column each.
	CoreBuckets []string
	// SelfArchivedCode is the switch with a companion address column.
	SelfArchivedCode string
	// Locales are the preferred locales for keyword terms.
	Locales []string
}

// Column returns the column name for a taxonomy code.
func Column(code string) string {
	return "keyword_" + code
}

// AddressColumn returns the companion column of a switch.
func AddressColumn(code string) string {
	return Column(code) + "_address"
}

// BucketColumn returns the column name of a subject code bucket.
func BucketColumn(prefix string) string {
	return CoreColumn + "_" + prefix
}

// Columns lists all columns Pivot produces, in a stable order.
func (o Options) Columns() []string {
	var columns []string
	for _, code := range o.Codes {
		columns = append(columns, Column(code))
		if code == o.SelfArchivedCode {
			columns = append(columns, AddressColumn(code))
		}
	}
	columns = append(columns, CoreColumn)
	for _, b := range o.CoreBuckets {
		columns = append(columns, BucketColumn(b))
	}
	return columns
}

// SubjectCode validates a subject code label like "612,1 Biochemistry",
// returning "6121". Labels that do not start with a number are rejected.
func SubjectCode(s string) (string, bool) {
	code := normal.SubjectCode.Normalize(s)
	return code, normal.IsDigits(code)
}

// bucket returns the longest configured prefix of code.
func (o Options) bucket(code string) (string, bool) {
	var found string
	for _, b := range o.CoreBuckets {
		if strings.HasPrefix(code, b) && len(b) > len(found) {
			found = b
		}
	}
	return found, found != ""
}

// match reports whether uri belongs to the taxonomy code.
func match(uri, code string) bool {
	return code != "" && strings.Contains(uri, Namespace+code+"/")
}

// address returns the free text of a container, locale resolved, last entry
// wins.
func address(fks []pure.FreeKeywords, prefs ...string) string {
	fk, ok := field.ResolveLocale(fks, func(v pure.FreeKeywords) string { return v.Locale }, prefs...)
	if !ok {
		return ""
	}
	s, _ := field.Last(fk.FreeKeywords)
	return strings.TrimSpace(s)
}

// Pivot resolves all configured columns for a research output. Every column
// of Columns is present in the result, unmatched columns hold the empty
// string. If several keywords match a code, the last one wins.
func Pivot(ro *pure.ResearchOutput, opts Options) map[string]string {
	result := make(map[string]string)
	for _, c := range opts.Columns() {
		result[c] = ""
	}
	setCore := func(label string) {
		code, ok := SubjectCode(label)
		if !ok {
			log.WithFields(log.Fields{"uuid": ro.UUID, "value": label}).Debug("skipping invalid subject code")
			return
		}
		result[CoreColumn] = code
		if b, ok := opts.bucket(code); ok {
			result[BucketColumn(b)] = code
		}
	}
	for _, g := range ro.KeywordGroups {
		for _, kw := range g.Keywords {
			if strings.Contains(kw.URI, CoreNamespace) {
				setCore(kw.Value)
				continue
			}
			for _, code := range opts.Codes {
				if !match(kw.URI, code) {
					continue
				}
				// legacy records name the value in the last segment of the tag
				value := field.URITail(kw.URI)
				result[Column(code)] = value
				if code == opts.SelfArchivedCode {
					result[AddressColumn(code)] = ""
				}
			}
		}
		for _, kc := range g.KeywordContainers {
			sk := kc.StructuredKeyword
			if sk == nil {
				continue
			}
			if strings.Contains(sk.URI, CoreNamespace) {
				label := sk.Term.String(opts.Locales...)
				if label == "" {
					label = field.URITail(sk.URI)
				}
				setCore(label)
				continue
			}
			for _, code := range opts.Codes {
				if !match(sk.URI, code) {
					continue
				}
				value := sk.Term.String(opts.Locales...)
				if value == "" {
					value = field.URITail(sk.URI)
				}
				result[Column(code)] = value
				if code == opts.SelfArchivedCode {
					var addr string
					if Truthy(value) || Truthy(field.URITail(sk.URI)) {
						addr = address(kc.FreeKeywords, opts.Locales...)
					}
					result[AddressColumn(code)] = addr
				}
			}
		}
	}
	return result
}
