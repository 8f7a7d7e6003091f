// pure-csv flattens research outputs into one row per author or editor,
// joined with persons, organisations, journals and journal metrics.
//
// $ pure-csv -i research-outputs.json -o research-outputs.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/miku/purekit"
	"github.com/miku/purekit/cache"
	"github.com/miku/purekit/config"
	"github.com/miku/purekit/dataset"
	"github.com/miku/purekit/flatten"
	"github.com/miku/purekit/jufo"
	"github.com/miku/purekit/metrics"
	"github.com/miku/purekit/ref"
	"github.com/miku/purekit/tabular"
	"github.com/miku/purekit/xflag"
	log "github.com/sirupsen/logrus"
)

var docs = strings.TrimLeft(`
# pure-csv - flatten Pure research outputs

Reads research outputs and the reference datasets (persons, external persons,
organisations, external organisations, journals) named in the config file and
writes one row per author or editor of each research output; outputs without
authors or editors get a single row.

Keyword codes become columns "keyword_<code>", journal metrics become
"<family>_<year>" columns for the configured year window. JUFO levels are
fetched once per identifier and cached on disk.

	$ pure-csv -i research-outputs.json.zst -o ro.csv -L fi_FI -L en_GB
	$ pure-csv -f sqlite -o pure.db
	$ pure-csv -l

## flags

`, "\n")

var (
	configFile  = flag.String("c", "", "config file, default: purekit.yaml in . or the XDG config home")
	inputFile   = flag.String("i", "", "research outputs file")
	outputFile  = flag.String("o", "", `output file, "-" for stdout`)
	format      = flag.String("f", "", "output format: csv or sqlite")
	version     = flag.String("columns", "", fmt.Sprintf("column list version, one of: %s", strings.Join(tabular.Versions(), ", ")))
	delimiter   = flag.String("d", "", "CSV delimiter")
	oneLine     = flag.Bool("one-line", false, "replace line breaks and tabs in values with spaces")
	offline     = flag.Bool("offline", false, "use cached JUFO data only")
	listColumns = flag.Bool("l", false, "list output columns and exit")
	showVersion = flag.Bool("version", false, "show version")

	locales, codes xflag.Strings
	verbose, quiet xflag.Count
)

func main() {
	flag.Var(&locales, "L", "preferred locale, repeatable or comma separated")
	flag.Var(&codes, "k", "keyword code to pivot into a column, repeatable or comma separated")
	flag.Var(&verbose, "v", "increase verbosity, repeatable")
	flag.Var(&quiet, "q", "reduce verbosity, repeatable")
	flag.Usage = func() {
		io.WriteString(os.Stderr, docs)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Println(purekit.Version)
		os.Exit(0)
	}
	log.SetLevel(xflag.Level(verbose, quiet))
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *inputFile != "" {
		cfg.Files.ResearchOutputs = *inputFile
	}
	if *outputFile != "" {
		cfg.CSV.Output = *outputFile
	}
	if *format != "" {
		cfg.CSV.Format = *format
	}
	if *version != "" {
		cfg.CSV.Columns = *version
	}
	if *delimiter != "" {
		cfg.CSV.Delimiter = *delimiter
	}
	if *oneLine {
		cfg.CSV.OneLine = true
	}
	if len(locales) > 0 {
		cfg.Locales = locales
	}
	if len(codes) > 0 {
		cfg.Keywords.Codes = codes
	}
	if cfg.CSV.Format == tabular.FormatSQLite && *outputFile == "" {
		cfg.CSV.Output = strings.TrimSuffix(cfg.CSV.Output, ".csv") + ".db"
	}
	csvOpts, err := cfg.CSVOptions()
	if err != nil {
		log.Fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		data  = &dataset.Data{}
		ix    *ref.Index
		table *metrics.Table
	)
	if !*listColumns {
		started := time.Now()
		if data, err = dataset.LoadAll(ctx, cfg.Files); err != nil {
			log.Fatal(err)
		}
		log.WithField("elapsed", time.Since(started)).Info("datasets loaded")
	}
	ix = ref.New(data, cfg.RefOptions())
	mopts := cfg.MetricsOptions(time.Now())
	if *listColumns {
		table = metrics.Build(ctx, nil, mopts, nil)
	} else {
		src, err := source(cfg)
		if err != nil {
			log.Fatal(err)
		}
		table = metrics.Build(ctx, ix.Journals(), mopts, src)
		if c, ok := src.(*cache.Cached); ok {
			log.WithFields(log.Fields{"journals": table.Len(), "fetches": c.Fetches}).Info("metrics ready")
		}
	}
	f := flatten.New(ix, table, cfg.FlattenOptions())
	columns, err := tabular.Columns(cfg.CSV.Columns, f.RunColumns())
	if err != nil {
		log.Fatal(err)
	}
	if *listColumns {
		for _, c := range columns {
			fmt.Println(c)
		}
		return
	}
	w, err := tabular.Create(cfg.CSV.Format, cfg.CSV.Output, cfg.CSV.Table, columns, csvOpts)
	if err != nil {
		log.Fatal(err)
	}
	var n int
	err = f.Each(data.ResearchOutputs, func(row flatten.Row) error {
		n++
		return w.Write(row)
	})
	if err != nil {
		_ = w.Abort()
		log.Fatalf("%s: %v", cfg.CSV.Output, err)
	}
	if err := w.Close(); err != nil {
		log.Fatalf("%s: %v", cfg.CSV.Output, err)
	}
	log.WithFields(log.Fields{
		"file":             cfg.CSV.Output,
		"rows":             n,
		"research_outputs": len(data.ResearchOutputs),
	}).Info("written")
}

// source returns the JUFO lookup, backed by a file cache. Only documents that
// parse are cached. Offline, only cached documents are used.
func source(cfg *config.Config) (metrics.Source, error) {
	if cfg.Metrics.External == "" {
		return nil, nil
	}
	dir := cfg.JUFO.CacheDir
	if dir == "" {
		var err error
		if dir, err = cache.DefaultDir("jufo"); err != nil {
			return nil, err
		}
	}
	fc, err := cache.NewFileCache(dir, "jufo_")
	if err != nil {
		return nil, err
	}
	c := &cache.Cached{Cache: fc, Validate: func(b []byte) error {
		_, err := jufo.Parse(b)
		return err
	}}
	if !*offline {
		c.Fetcher = jufo.New(cfg.JUFO.Endpoint, cfg.JUFO.MaxRetries, cfg.JUFO.Timeout)
	}
	return c, nil
}
