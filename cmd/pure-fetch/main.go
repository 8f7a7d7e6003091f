// pure-fetch harvests one or more Pure APIs into {"items": [...]} files.
//
// $ pure-fetch -H pure.example.org -u /ws/api/524 research-outputs persons
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/miku/purekit"
	"github.com/miku/purekit/config"
	"github.com/miku/purekit/feeds"
	"github.com/miku/purekit/xflag"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var docs = strings.TrimLeft(`
# pure-fetch - harvest the Pure web service

Fetches all items of the given APIs, following the navigation links page by
page, and writes one JSON file per API, by default "<api>.json". Files ending
in .gz or .zst are compressed.

Hostname, URI and credentials come from the config file (purekit.yaml),
PUREKIT_API_* or the older PURE_HOSTNAME, PURE_URI, PURE_API_KEY,
PURE_USERNAME and PURE_PASSWORD environment variables, or the flags.

	$ pure-fetch -H pure.example.org -u /ws/api/524 research-outputs
	$ pure-fetch -S -o journals.json.zst journals

## flags

`, "\n")

var (
	configFile  = flag.String("c", "", "config file, default: purekit.yaml in . or the XDG config home")
	hostname    = flag.String("H", "", "hostname of the Pure API")
	uri         = flag.String("u", "", "base URI of the Pure API, e.g. /ws/api/524")
	locale      = flag.String("L", "", "locale to request")
	size        = flag.Int("s", 0, "page size")
	outputFile  = flag.String("o", "", "output file, only with a single API, default: <api>.json")
	split       = flag.Bool("S", false, "also keep each page in a separate file")
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
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *outputFile != "" && flag.NArg() > 1 {
		log.Fatal("-o works with a single API only")
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *hostname != "" {
		cfg.API.Hostname = *hostname
	}
	if *uri != "" {
		cfg.API.URI = *uri
	}
	if *locale != "" {
		cfg.API.Locale = *locale
	}
	if *size > 0 {
		cfg.API.Size = *size
	}
	switch {
	case cfg.API.Hostname == "":
		log.Fatal("no hostname configured or given")
	case cfg.API.URI == "":
		log.Fatal("no URI configured or given")
	}
	h := feeds.NewPureHarvester(cfg.Endpoint(), cfg.API.MaxRetries, cfg.API.Timeout)
	h.APIKey = cfg.API.APIKey
	h.Username = cfg.API.Username
	h.Password = cfg.API.Password
	h.Size = cfg.API.Size
	h.Locale = cfg.API.Locale
	if cfg.API.Rate > 0 {
		h.Limiter = rate.NewLimiter(rate.Limit(cfg.API.Rate), 1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	for _, api := range flag.Args() {
		filename := *outputFile
		if filename == "" {
			filename = api + ".json"
		}
		n, err := h.WriteFile(ctx, api, filename, *split)
		if err != nil {
			log.Fatalf("%s: %v", api, err)
		}
		log.Infof("wrote %d items to %s", n, filename)
	}
}
