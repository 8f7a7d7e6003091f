// Package config reads purekit settings from a YAML file, environment
// variables and an optional .env file. Command line flags take precedence and
// are applied by the tools themselves.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/miku/purekit"
	"github.com/miku/purekit/dataset"
	"github.com/miku/purekit/dateutil"
	"github.com/miku/purekit/feeds"
	"github.com/miku/purekit/flatten"
	"github.com/miku/purekit/jufo"
	"github.com/miku/purekit/keyword"
	"github.com/miku/purekit/metrics"
	"github.com/miku/purekit/ref"
	"github.com/miku/purekit/tabular"
	"github.com/spf13/viper"
)

// API is the Pure web service.
type API struct {
	Hostname   string        `mapstructure:"hostname"`
	URI        string        `mapstructure:"uri"`
	APIKey     string        `mapstructure:"apikey"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	Size       int           `mapstructure:"size"`
	Locale     string        `mapstructure:"locale"`
	MaxRetries int           `mapstructure:"max-retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// Rate limits requests per second, zero means no limit.
	Rate float64 `mapstructure:"rate"`
}

// CSV is the tabular output.
type CSV struct {
	Output    string `mapstructure:"output"`
	Format    string `mapstructure:"format"`
	Table     string `mapstructure:"table"`
	Columns   string `mapstructure:"columns"`
	Delimiter string `mapstructure:"delimiter"`
	Quote     string `mapstructure:"quote"`
	Quoting   string `mapstructure:"quoting"`
	OneLine   bool   `mapstructure:"one-line"`
}

// Keywords are the taxonomy codes to pivot.
type Keywords struct {
	Codes        []string `mapstructure:"codes"`
	CoreBuckets  []string `mapstructure:"core-buckets"`
	SelfArchived string   `mapstructure:"self-archived"`
}

// Metrics configures the journal metric columns.
type Metrics struct {
	Families     []string `mapstructure:"families"`
	External     string   `mapstructure:"external"`
	RegistryKind string   `mapstructure:"registry-kind"`
	// StartYear of the window, zero means Years back from the current year.
	StartYear int `mapstructure:"start-year"`
	Years     int `mapstructure:"years"`
}

// JUFO is the publication forum registry.
type JUFO struct {
	Endpoint string `mapstructure:"endpoint"`
	// CacheDir defaults to purekit/jufo under the XDG cache home.
	CacheDir string `mapstructure:"cache-dir"`
	// MaxRetries is the number of attempts per request.
	MaxRetries int           `mapstructure:"max-retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Config for all purekit tools.
type Config struct {
	// Locales are preferred locales, in order. Empty means the last value of
	// a localized list wins.
	Locales []string `mapstructure:"locales"`
	// IdentifierKinds maps person identifier kinds to column names.
	IdentifierKinds map[string]string `mapstructure:"identifier-kinds"`
	API             API               `mapstructure:"api"`
	Files           dataset.Files     `mapstructure:"files"`
	CSV             CSV               `mapstructure:"csv"`
	Keywords        Keywords          `mapstructure:"keywords"`
	Metrics         Metrics           `mapstructure:"metrics"`
	JUFO            JUFO              `mapstructure:"jufo"`
}

// EnvPrefix prefixes environment variables, e.g. PUREKIT_CSV_OUTPUT.
const EnvPrefix = "PUREKIT"

// legacyEnv are the environment variables the older tools read.
var legacyEnv = map[string]string{
	"api.hostname": "PURE_HOSTNAME",
	"api.uri":      "PURE_URI",
	"api.apikey":   "PURE_API_KEY",
	"api.username": "PURE_USERNAME",
	"api.password": "PURE_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("locales", []string{})
	v.SetDefault("identifier-kinds", ref.DefaultIdentifierKinds)
	v.SetDefault("api.hostname", "")
	v.SetDefault("api.uri", "")
	v.SetDefault("api.apikey", "")
	v.SetDefault("api.username", "")
	v.SetDefault("api.password", "")
	v.SetDefault("api.size", 1000)
	v.SetDefault("api.locale", "en_GB")
	v.SetDefault("api.max-retries", 3)
	v.SetDefault("api.timeout", 60*time.Second)
	v.SetDefault("api.rate", 0)
	v.SetDefault("files.research-outputs", "research-outputs.json")
	v.SetDefault("files.persons", "persons.json")
	v.SetDefault("files.external-persons", "external-persons.json")
	v.SetDefault("files.organisations", "organisational-units.json")
	v.SetDefault("files.external-organisations", "external-organisations.json")
	v.SetDefault("files.journals", "journals.json")
	v.SetDefault("csv.output", "research-outputs.csv")
	v.SetDefault("csv.format", "csv")
	v.SetDefault("csv.table", "research_outputs")
	v.SetDefault("csv.columns", tabular.DefaultVersion)
	v.SetDefault("csv.delimiter", ";")
	v.SetDefault("csv.quote", `"`)
	v.SetDefault("csv.quoting", "minimal")
	v.SetDefault("csv.one-line", false)
	v.SetDefault("keywords.codes", []string{})
	v.SetDefault("keywords.core-buckets", keyword.DefaultCoreBuckets)
	v.SetDefault("keywords.self-archived", keyword.DefaultSelfArchivedCode)
	v.SetDefault("metrics.families", metrics.DefaultFamilies)
	v.SetDefault("metrics.external", metrics.ExternalFamily)
	v.SetDefault("metrics.registry-kind", "jufo")
	v.SetDefault("metrics.start-year", 0)
	v.SetDefault("metrics.years", 5)
	v.SetDefault("jufo.endpoint", jufo.DefaultEndpoint)
	v.SetDefault("jufo.cache-dir", "")
	// a failed lookup counts as absent for the run, no retries by default
	v.SetDefault("jufo.max-retries", 1)
	v.SetDefault("jufo.timeout", 30*time.Second)
}

// Load reads the configuration. If filename is empty, "purekit.yaml" is
// searched in the current directory and the XDG config home; a missing file
// is not an error then. Variables from a .env file in the current directory
// are loaded first, without overriding the environment.
func Load(filename string) (*Config, error) {
	_ = godotenv.Load()
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, err
		}
	}
	if filename != "" {
		v.SetConfigFile(filename)
	} else {
		v.SetConfigName(purekit.AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, purekit.AppName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if filename != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &c, nil
}

// Endpoint returns the Pure API base URL.
func (c *Config) Endpoint() string {
	if c.API.Hostname == "" {
		return ""
	}
	return feeds.Endpoint(c.API.Hostname, c.API.URI)
}

// Window returns the metric year window, relative to t if no start year is
// configured.
func (c *Config) Window(t time.Time) dateutil.Window {
	if c.Metrics.StartYear > 0 {
		return dateutil.Window{Start: c.Metrics.StartYear, Years: c.Metrics.Years}
	}
	return dateutil.DefaultWindow(t, c.Metrics.Years)
}

// RefOptions returns the options for reference joins.
func (c *Config) RefOptions() ref.Options {
	return ref.Options{
		Locales:         c.Locales,
		IdentifierKinds: c.IdentifierKinds,
		RegistryKind:    c.Metrics.RegistryKind,
	}
}

// KeywordOptions returns the options of the keyword pivot.
func (c *Config) KeywordOptions() keyword.Options {
	return keyword.Options{
		Codes:            c.Keywords.Codes,
		CoreBuckets:      c.Keywords.CoreBuckets,
		SelfArchivedCode: c.Keywords.SelfArchived,
		Locales:          c.Locales,
	}
}

// MetricsOptions returns the options of the metrics overlay.
func (c *Config) MetricsOptions(t time.Time) metrics.Options {
	return metrics.Options{
		Families:     c.Metrics.Families,
		External:     c.Metrics.External,
		RegistryKind: c.Metrics.RegistryKind,
		Window:       c.Window(t),
	}
}

// FlattenOptions returns the options of the flattener.
func (c *Config) FlattenOptions() flatten.Options {
	return flatten.Options{
		Locales:  c.Locales,
		Keywords: c.KeywordOptions(),
	}
}

// CSVOptions returns the CSV dialect.
func (c *Config) CSVOptions() (tabular.CSVOptions, error) {
	quoting, err := tabular.ParseQuoting(c.CSV.Quoting)
	if err != nil {
		return tabular.CSVOptions{}, err
	}
	opts := tabular.CSVOptions{
		Quoting: quoting,
		OneLine: c.CSV.OneLine,
	}
	if r := []rune(c.CSV.Delimiter); len(r) == 1 {
		opts.Delimiter = r[0]
	} else if len(r) > 1 {
		return opts, fmt.Errorf("delimiter must be a single character: %q", c.CSV.Delimiter)
	}
	if r := []rune(c.CSV.Quote); len(r) == 1 {
		opts.Quote = r[0]
	} else if len(r) > 1 {
		return opts, fmt.Errorf("quote must be a single character: %q", c.CSV.Quote)
	}
	return opts, nil
}
