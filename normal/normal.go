// Package normal contains small string normalizers for values found in Pure
// exports.
package normal

import (
	"strings"
	"unicode"
)

type Pipeline struct {
	Normalizer []Normalizer
}

func (p *Pipeline) Normalize(s string) string {
	for _, n := range p.Normalizer {
		s = n.Normalize(s)
	}
	return s
}

type Normalizer interface {
	Normalize(string) string
}

// FirstTokenNormalizer keeps the first whitespace separated token, e.g. "113"
// from "113 Computer and information sciences".
type FirstTokenNormalizer struct{}

func (s *FirstTokenNormalizer) Normalize(v string) string {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// RemoveRunesNormalizer drops all given runes, e.g. "612,1" -> "6121".
type RemoveRunesNormalizer struct {
	Runes string
}

func (s *RemoveRunesNormalizer) Normalize(v string) string {
	var b strings.Builder
	for _, c := range v {
		if strings.ContainsRune(s.Runes, c) {
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// SubjectCode turns a field of science label like "612,1 Biochemistry" into
// its numeric code.
var SubjectCode = &Pipeline{Normalizer: []Normalizer{
	&FirstTokenNormalizer{},
	&RemoveRunesNormalizer{Runes: ",."},
}}

// IsDigits reports whether s is non-empty and consists of ASCII digits only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// languageNames maps the odd word language codes found in some exports.
var languageNames = map[string]string{
	"chinese":    "zh",
	"english":    "en",
	"finnish":    "fi",
	"german":     "de",
	"italian":    "it",
	"polish":     "pl",
	"portuguese": "pt",
	"swedish":    "sv",
}

// Language turns a language classification tail like "fi_FI" into a two
// letter code. The undetermined language "und" yields the empty string.
func Language(tail string) string {
	lang, _, _ := strings.Cut(strings.TrimSpace(tail), "_")
	lang = strings.ToLower(lang)
	if v, ok := languageNames[lang]; ok {
		return v
	}
	if lang == "und" {
		return ""
	}
	return lang
}

// ReplaceNewlineAndTab replaces newlines, carriage returns and tabs with a
// single space.
func ReplaceNewlineAndTab(s string) string {
	var sb strings.Builder
	for _, c := range s {
		if c == '\n' || c == '\t' || c == '\r' {
			sb.WriteString(" ")
		} else {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// CollapseSpace trims and collapses runs of whitespace.
func CollapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
