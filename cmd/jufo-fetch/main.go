// jufo-fetch retrieves the JUFO record of a journal or series.
//
// $ jufo-fetch 51218
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/miku/purekit"
	"github.com/miku/purekit/atomicfile"
	"github.com/miku/purekit/config"
	"github.com/miku/purekit/jufo"
	"github.com/miku/purekit/xflag"
	log "github.com/sirupsen/logrus"
)

var docs = strings.TrimLeft(`
# jufo-fetch - get a Publication Forum (JUFO) record

Fetches the record for a JUFO identifier and writes it to stdout or a file.
With -y, prints the level for a year instead.

	$ jufo-fetch 51218
	$ jufo-fetch -o jufo_51218.json 51218
	$ jufo-fetch -y 2020 51218

## flags

`, "\n")

var (
	configFile  = flag.String("c", "", "config file, default: purekit.yaml in . or the XDG config home")
	outputFile  = flag.String("o", "", "output file")
	year        = flag.Int("y", 0, "print the level for this year")
	showVersion = flag.Bool("version", false, "show version")

	verbose, quiet xflag.Count
)

func main() {
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
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	id := flag.Arg(0)
	client := jufo.New(cfg.JUFO.Endpoint, cfg.JUFO.MaxRetries, cfg.JUFO.Timeout)
	b, err := client.Fetch(context.Background(), id)
	if err != nil {
		log.Fatal(err)
	}
	if *year > 0 {
		ds, err := jufo.Parse(b)
		if err != nil {
			log.Fatal(err)
		}
		level, ok := ds.Level(*year)
		if !ok {
			log.Fatalf("%s: no level for %d", id, *year)
		}
		fmt.Println(level)
		return
	}
	if *outputFile == "" {
		if _, err := os.Stdout.Write(b); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := atomicfile.WriteFile(*outputFile, b, 0644); err != nil {
		log.Fatal(err)
	}
	log.WithField("file", *outputFile).Info("written")
}
