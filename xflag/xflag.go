// Package xflag adds flag types for repeatable switches and lists.
package xflag

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Count is a boolean flag that counts its occurrences, e.g. -v -v.
type Count int

func (c *Count) String() string { return strconv.Itoa(int(*c)) }

func (c *Count) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if v {
		*c++
	}
	return nil
}

func (c *Count) IsBoolFlag() bool { return true }

// Strings collects comma separated values, the flag may be repeated.
type Strings []string

func (s *Strings) String() string { return strings.Join(*s, ",") }

func (s *Strings) Set(v string) error {
	for _, f := range strings.Split(v, ",") {
		if f = strings.TrimSpace(f); f != "" {
			*s = append(*s, f)
		}
	}
	return nil
}

// Level maps verbosity counters to a log level, starting at warn. Each -v
// goes one step towards trace, each -q one towards panic.
func Level(verbose, quiet Count) log.Level {
	l := int(log.WarnLevel) + int(verbose) - int(quiet)
	switch {
	case l < int(log.PanicLevel):
		return log.PanicLevel
	case l > int(log.TraceLevel):
		return log.TraceLevel
	}
	return log.Level(l)
}
