package xflag

import (
	"flag"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestCount(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var v, q Count
	fs.Var(&v, "v", "verbose")
	fs.Var(&q, "q", "quiet")
	if err := fs.Parse([]string{"-v", "-v", "-q", "-v=false"}); err != nil {
		t.Fatal(err)
	}
	if v != 2 || q != 1 {
		t.Errorf("got v=%d q=%d, want 2 and 1", v, q)
	}
}

func TestStrings(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var s Strings
	fs.Var(&s, "L", "locales")
	if err := fs.Parse([]string{"-L", "fi_FI, sv_FI", "-L", "en_GB", "-L", ""}); err != nil {
		t.Fatal(err)
	}
	if got, want := s.String(), "fi_FI,sv_FI,en_GB"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLevel(t *testing.T) {
	var cases = []struct {
		v, q Count
		want log.Level
	}{
		{0, 0, log.WarnLevel},
		{1, 0, log.InfoLevel},
		{2, 0, log.DebugLevel},
		{3, 0, log.TraceLevel},
		{9, 0, log.TraceLevel},
		{0, 1, log.ErrorLevel},
		{0, 9, log.PanicLevel},
		{2, 1, log.InfoLevel},
	}
	for _, c := range cases {
		if got := Level(c.v, c.q); got != c.want {
			t.Errorf("Level(%d, %d): got %v, want %v", c.v, c.q, got, c.want)
		}
	}
}
