// Package field provides lookups into nested, semi-structured documents. None
// of the functions fail on missing data, they report absence instead.
package field

import (
	"strconv"
	"strings"
)

// Lookup follows path through nested maps and slices, as produced by decoding
// JSON into an interface value. Slice elements are addressed by decimal
// index. The second return value is false, if any step along the path is
// missing or of an unexpected kind.
func Lookup(doc any, path ...string) (any, bool) {
	cur := doc
	for _, p := range path {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[p]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// String returns the scalar at path formatted as a string, or the empty
// string if there is no scalar value.
func String(doc any, path ...string) string {
	v, ok := Lookup(doc, path...)
	if !ok {
		return ""
	}
	s, _ := Scalar(v)
	return s
}

// Scalar formats a decoded JSON scalar. Objects and arrays are not scalars.
func Scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case interface{ String() string }:
		return t.String(), true
	}
	return "", false
}

// Float interprets a decoded JSON scalar as a number. Numeric strings are
// accepted, as some sources quote their numbers.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Last returns the last element of a slice.
func Last[T any](xs []T) (T, bool) {
	var zero T
	if len(xs) == 0 {
		return zero, false
	}
	return xs[len(xs)-1], true
}

// ResolveLocale picks one entry from a locale qualified list. Preferred
// locales are tried in order; a preference matches a locale exactly
// (case-insensitive) or by its language part, so "fi" matches "fi_FI". If
// several entries match the same preference, the last one wins. Without
// preferences, or if none matches, the last entry of the list wins.
func ResolveLocale[T any](xs []T, locale func(T) string, prefs ...string) (T, bool) {
	for _, pref := range prefs {
		var (
			found T
			ok    bool
		)
		for _, x := range xs {
			if localeMatches(locale(x), pref) {
				found, ok = x, true
			}
		}
		if ok {
			return found, true
		}
	}
	return Last(xs)
}

func localeMatches(locale, pref string) bool {
	if pref == "" || locale == "" {
		return false
	}
	if strings.EqualFold(locale, pref) {
		return true
	}
	lang, _, _ := strings.Cut(locale, "_")
	return strings.EqualFold(lang, pref)
}

// URITail returns the last path segment of a URI like
// "/dk/atira/pure/core/languages/fi_FI".
func URITail(uri string) string {
	return URISegment(uri, 0)
}

// URISegment returns the n-th path segment counted from the end, starting at
// zero. A trailing slash is ignored. Returns the empty string, if there are
// not enough segments.
func URISegment(uri string, n int) string {
	uri = strings.TrimRight(strings.TrimSpace(uri), "/")
	if uri == "" || n < 0 {
		return ""
	}
	parts := strings.Split(uri, "/")
	i := len(parts) - 1 - n
	if i < 0 {
		return ""
	}
	return parts[i]
}
