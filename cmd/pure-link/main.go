// pure-link writes link tables between research outputs and persons or
// organisations.
//
// $ pure-link -b person -i research-outputs.json
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/miku/purekit"
	"github.com/miku/purekit/config"
	"github.com/miku/purekit/dataset"
	"github.com/miku/purekit/link"
	"github.com/miku/purekit/schema/pure"
	"github.com/miku/purekit/tabular"
	"github.com/miku/purekit/xflag"
	log "github.com/sirupsen/logrus"
)

var docs = strings.TrimLeft(`
# pure-link - research output link tables

Writes research-output-person.csv with one row per author or editor with a
complete name, or research-output-organisation.csv with the managing unit of
each research output.

	$ pure-link -b person
	$ pure-link -b organisation -o orgs.csv

## flags

`, "\n")

const researchOutput = "research-output"

var (
	configFile  = flag.String("c", "", "config file, default: purekit.yaml in . or the XDG config home")
	inputFile   = flag.String("i", "", "research outputs file")
	outputFile  = flag.String("o", "", `output file, default: <a>-<b>.csv, "-" for stdout`)
	linkFrom    = flag.String("a", researchOutput, "left side of the link, only research-output")
	linkTo      = flag.String("b", link.Person, "right side of the link: person or organisation")
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
	if *linkFrom != researchOutput {
		log.Fatalf("unsupported link source: %s", *linkFrom)
	}
	columns, err := link.Columns(*linkTo)
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *inputFile != "" {
		cfg.Files.ResearchOutputs = *inputFile
	}
	filename := *outputFile
	if filename == "" {
		filename = *linkFrom + "-" + *linkTo + ".csv"
	}
	csvOpts, err := cfg.CSVOptions()
	if err != nil {
		log.Fatal(err)
	}
	ros, err := dataset.Load[pure.ResearchOutput](cfg.Files.ResearchOutputs)
	if err != nil {
		log.Fatal(err)
	}
	rows, err := link.Rows(*linkTo, ros)
	if err != nil {
		log.Fatal(err)
	}
	w, err := tabular.Create(tabular.FormatCSV, filename, "", columns, csvOpts)
	if err != nil {
		log.Fatal(err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			_ = w.Abort()
			log.Fatalf("%s: %v", filename, err)
		}
	}
	if err := w.Close(); err != nil {
		log.Fatalf("%s: %v", filename, err)
	}
	log.WithFields(log.Fields{"file": filename, "rows": len(rows)}).Info("written")
}
