package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/miku/purekit/cache"
	"github.com/miku/purekit/dateutil"
	"github.com/miku/purekit/jufo"
	"github.com/miku/purekit/schema/pure"
	"github.com/segmentio/encoding/json"
)

const testJournals = `[
  {"uuid": "J1",
   "ids": [{"type": {"uri": "/dk/atira/pure/journal/journalsources/jufoid"}, "value": "51218"}],
   "scopusMetrics": [
     {"year": 2018, "citeScore": 9.9},
     {"year": 2019, "citeScore": 1.5, "sjr": "0.532"},
     {"year": "2020", "citeScore": 2, "snip": 1.25}
   ]},
  {"uuid": "J2",
   "ids": [{"type": {"uri": "/dk/atira/pure/journal/journalsources/jufoid"}, "value": "broken"}]},
  {"uuid": "J3"},
  {"uuid": "J4",
   "ids": [{"type": {"uri": "/dk/atira/pure/journal/journalsources/jufoid"}, "value": "51218"}]}
]`

var documents = map[string]string{
	"51218": `[{"Jufo_ID": "51218", "Level_2019": "1", "Jufo_history": "2015-: 2"}]`,
	"broken": `[{"Jufo_ID": `,
}

var testOptions = Options{
	Families:     DefaultFamilies,
	External:     ExternalFamily,
	RegistryKind: "jufo",
	Window:       dateutil.Window{Start: 2019, Years: 2},
}

func journals(t *testing.T) []*pure.Journal {
	t.Helper()
	var js []pure.Journal
	if err := json.Unmarshal([]byte(testJournals), &js); err != nil {
		t.Fatal(err)
	}
	var result []*pure.Journal
	for i := range js {
		result = append(result, &js[i])
	}
	return result
}

type countingSource struct {
	calls map[string]int
}

func (s *countingSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[id]++
	doc, ok := documents[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(doc), nil
}

func TestColumns(t *testing.T) {
	want := []string{
		"citeScore_2019", "citeScore_2020",
		"sjr_2019", "sjr_2020",
		"snip_2019", "snip_2020",
		"jufo_2019", "jufo_2020",
	}
	if diff := cmp.Diff(want, testOptions.Columns()); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}
}

func TestColumnsExternalInFamilies(t *testing.T) {
	opts := Options{
		Families: []string{"jufo", "sjr", "jufo"},
		External: "jufo",
		Window:   dateutil.Window{Start: 2020, Years: 1},
	}
	want := []string{"jufo_2020", "sjr_2020"}
	if diff := cmp.Diff(want, opts.Columns()); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild(t *testing.T) {
	src := &countingSource{}
	table := Build(context.Background(), journals(t), testOptions, src)
	if table.Len() != 4 {
		t.Fatalf("got %d journals, want 4", table.Len())
	}
	var cases = []struct {
		journal string
		want    map[string]string
	}{
		{"J1", map[string]string{
			"citeScore_2019": "1.5", "citeScore_2020": "2",
			"sjr_2019": "0.532", "sjr_2020": "",
			"snip_2019": "", "snip_2020": "1.25",
			"jufo_2019": "1", "jufo_2020": "2",
		}},
		// failed lookup, all keys present, values empty
		{"J2", map[string]string{
			"citeScore_2019": "", "citeScore_2020": "",
			"sjr_2019": "", "sjr_2020": "",
			"snip_2019": "", "snip_2020": "",
			"jufo_2019": "", "jufo_2020": "",
		}},
		{"J4", map[string]string{
			"citeScore_2019": "", "citeScore_2020": "",
			"sjr_2019": "", "sjr_2020": "",
			"snip_2019": "", "snip_2020": "",
			"jufo_2019": "1", "jufo_2020": "2",
		}},
		// unknown journal
		{"J-unknown", map[string]string{
			"citeScore_2019": "", "citeScore_2020": "",
			"sjr_2019": "", "sjr_2020": "",
			"snip_2019": "", "snip_2020": "",
			"jufo_2019": "", "jufo_2020": "",
		}},
	}
	for _, c := range cases {
		t.Run(c.journal, func(t *testing.T) {
			if diff := cmp.Diff(c.want, table.Fields(c.journal)); diff != "" {
				t.Errorf("Fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
	// J1 and J4 share an identifier
	if diff := cmp.Diff(map[string]int{"51218": 1, "broken": 1}, src.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldsAreIndependent(t *testing.T) {
	table := Build(context.Background(), journals(t), testOptions, &countingSource{})
	a := table.Fields("J1")
	a["jufo_2019"] = "changed"
	if b := table.Fields("J1"); b["jufo_2019"] != "1" {
		t.Fatalf("got %v, want 1", b["jufo_2019"])
	}
}

func TestBuildCacheIdempotence(t *testing.T) {
	dir := t.TempDir()
	src := &countingSource{}
	run := func() (*Table, int) {
		fc, err := cache.NewFileCache(dir, "jufo_")
		if err != nil {
			t.Fatal(err)
		}
		cached := &cache.Cached{Cache: fc, Fetcher: src, Validate: func(b []byte) error {
			_, err := jufo.Parse(b)
			return err
		}}
		return Build(context.Background(), journals(t), testOptions, cached), cached.Fetches
	}
	first, n := run()
	if n != 2 {
		t.Fatalf("got %d fetches, want 2", n)
	}
	// the unparsable document is not cached and asked for again
	second, n := run()
	if n != 1 {
		t.Fatalf("got %d fetches, want 1", n)
	}
	if diff := cmp.Diff(map[string]int{"51218": 1, "broken": 2}, src.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	for _, j := range []string{"J1", "J2", "J3", "J4"} {
		if diff := cmp.Diff(first.Fields(j), second.Fields(j)); diff != "" {
			t.Errorf("%s differs between runs (-first +second):\n%s", j, diff)
		}
	}
}

func TestBuildWithoutExternal(t *testing.T) {
	opts := testOptions
	opts.External = ""
	table := Build(context.Background(), journals(t), opts, nil)
	got := table.Fields("J1")
	if _, ok := got["jufo_2019"]; ok {
		t.Fatal("external family disabled, but column present")
	}
	if got["citeScore_2019"] != "1.5" {
		t.Fatalf("got %v", got["citeScore_2019"])
	}
}
