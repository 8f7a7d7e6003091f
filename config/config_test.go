package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/miku/purekit/dateutil"
	"github.com/miku/purekit/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
locales: [fi_FI, en_GB]
api:
  hostname: pure.example.org
  uri: /ws/api/524
  size: 200
files:
  research-outputs: ro.json.zst
  journals: ""
csv:
  delimiter: ","
  quoting: all
  format: sqlite
keywords:
  codes: [okmfield, selfarchived]
metrics:
  families: [sjr]
  start-year: 2018
  years: 3
jufo:
  timeout: 10s
`

func writeConfig(t *testing.T, s string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "purekit.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(s), 0644))
	return filename
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ";", c.CSV.Delimiter)
	assert.Equal(t, `"`, c.CSV.Quote)
	assert.Equal(t, tabular.DefaultVersion, c.CSV.Columns)
	assert.Equal(t, "research-outputs.json", c.Files.ResearchOutputs)
	assert.Equal(t, 1000, c.API.Size)
	assert.Equal(t, 60*time.Second, c.API.Timeout)
	assert.Equal(t, 1, c.JUFO.MaxRetries)
	assert.Equal(t, []string{"citeScore", "sjr", "snip"}, c.Metrics.Families)
	assert.Equal(t, "jufo", c.Metrics.External)
	assert.Equal(t, "selfarchived", c.Keywords.SelfArchived)
	assert.Equal(t, "employeeId", c.IdentifierKinds["employee"])
	assert.Empty(t, c.Locales)
	assert.Equal(t, "", c.Endpoint())
}

func TestLoadFile(t *testing.T) {
	c, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, []string{"fi_FI", "en_GB"}, c.Locales)
	assert.Equal(t, "https://pure.example.org/ws/api/524", c.Endpoint())
	assert.Equal(t, 200, c.API.Size)
	assert.Equal(t, "ro.json.zst", c.Files.ResearchOutputs)
	assert.Equal(t, "", c.Files.Journals)
	assert.Equal(t, "persons.json", c.Files.Persons)
	assert.Equal(t, 10*time.Second, c.JUFO.Timeout)
	assert.Equal(t, "sqlite", c.CSV.Format)

	assert.Equal(t, dateutil.Window{Start: 2018, Years: 3}, c.Window(time.Now()))
	mo := c.MetricsOptions(time.Now())
	assert.Equal(t, []string{"sjr"}, mo.Families)
	assert.Equal(t, []int{2018, 2019, 2020}, mo.Window.List())

	ko := c.KeywordOptions()
	assert.Equal(t, []string{"okmfield", "selfarchived"}, ko.Codes)
	assert.Equal(t, []string{"fi_FI", "en_GB"}, ko.Locales)
	assert.Equal(t, ko, c.FlattenOptions().Keywords)

	opts, err := c.CSVOptions()
	require.NoError(t, err)
	assert.Equal(t, ',', opts.Delimiter)
	assert.Equal(t, '"', opts.Quote)
	assert.Equal(t, tabular.QuoteAll, opts.Quoting)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("PUREKIT_CSV_OUTPUT", "env.csv")
	t.Setenv("PUREKIT_CSV_ONE_LINE", "true")
	t.Setenv("PUREKIT_METRICS_YEARS", "2")
	t.Setenv("PURE_API_KEY", "legacy-secret")
	t.Setenv("PURE_HOSTNAME", "legacy.example.org")
	t.Setenv("PUREKIT_API_HOSTNAME", "pure.example.org")

	c, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, "env.csv", c.CSV.Output)
	assert.True(t, c.CSV.OneLine)
	assert.Equal(t, 2, c.Metrics.Years)
	assert.Equal(t, "legacy-secret", c.API.APIKey)
	assert.Equal(t, "pure.example.org", c.API.Hostname, "prefixed variable wins")
}

func TestDefaultWindow(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	ref := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, dateutil.Window{Start: 2020, Years: 5}, c.Window(ref))
}

func TestCSVOptionsInvalid(t *testing.T) {
	var cases = []struct {
		about string
		csv   CSV
	}{
		{"long delimiter", CSV{Delimiter: "ab", Quoting: "minimal"}},
		{"long quote", CSV{Delimiter: ";", Quote: "''", Quoting: "minimal"}},
		{"unknown quoting", CSV{Delimiter: ";", Quoting: "sometimes"}},
	}
	for _, c := range cases {
		t.Run(c.about, func(t *testing.T) {
			cfg := &Config{CSV: c.csv}
			_, err := cfg.CSVOptions()
			assert.Error(t, err)
		})
	}
}
