package normal

import "testing"

func TestSubjectCode(t *testing.T) {
	var cases = []struct {
		s      string
		result string
		digits bool
	}{
		{"113 Computer and information sciences", "113", true},
		{"612,1 Biochemistry", "6121", true},
		{"3111.2 Biomedicine", "31112", true},
		{"  222 Other engineering", "222", true},
		{"Other", "Other", false},
		{"", "", false},
		{"11a3 Typo", "11a3", false},
	}
	for _, c := range cases {
		got := SubjectCode.Normalize(c.s)
		if got != c.result {
			t.Errorf("SubjectCode(%q): got %q, want %q", c.s, got, c.result)
		}
		if IsDigits(got) != c.digits {
			t.Errorf("IsDigits(%q): got %v, want %v", got, !c.digits, c.digits)
		}
	}
}

func TestLanguage(t *testing.T) {
	var cases = []struct {
		tail, result string
	}{
		{"fi_FI", "fi"},
		{"en_GB", "en"},
		{"italian", "it"},
		{"Chinese", "zh"},
		{"und", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := Language(c.tail); got != c.result {
			t.Errorf("Language(%q): got %q, want %q", c.tail, got, c.result)
		}
	}
}

func TestReplaceNewlineAndTab(t *testing.T) {
	if got := ReplaceNewlineAndTab("a\nb\tc\r\n"); got != "a b c  " {
		t.Errorf("got %q", got)
	}
	if got := CollapseSpace("  a \n\n b  "); got != "a b" {
		t.Errorf("got %q", got)
	}
}
