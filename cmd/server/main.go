package main

import (
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"wafgate/balancer"
	"wafgate/banstore"
	"wafgate/gateway"
	"wafgate/hyperscan"
	"wafgate/logging"
	"wafgate/proxy"
	"wafgate/sigrule"
	"wafgate/sites"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Dependency injection composition root
func main() {
	logLevel := flag.String("loglevel", "info", "sets log level. Can be one of: debug, info, warn, error, fatal, panic.")
	listenAddr := flag.String("listen", ":8080", "address the gateway listens on for inbound traffic")
	adminAddr := flag.String("admin", ":9090", "address of the operational listener (/healthz, /metrics)")
	sitesFile := flag.String("sites", "sites.yaml", "path to the YAML sites config; changes are picked up automatically")
	skipPaths := flag.String("skippaths", "", "comma separated path prefixes that bypass the pipeline, e.g. /admin/,/static/")
	forwardTimeout := flag.Duration("timeout", proxy.DefaultTimeout, "timeout for forwarding a request to a backend")
	maxBodyBytes := flag.Int64("maxbody", 128*1024, "max request body bytes buffered for scanning and forwarding")
	banGCInterval := flag.Duration("bangc", time.Minute, "sweep interval for expired IP bans")
	flag.Parse()

	loglevel, _ := zerolog.ParseLevel(*logLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(loglevel).With().Timestamp().Caller().Logger()

	mref := hyperscan.NewMultiRegexEngineFactory()
	ref := sigrule.NewEngineFactory(logger, mref)

	resolver, err := sites.NewResolver(logger, *sitesFile)
	if err != nil {
		logger.Fatal().Err(err).Str("sites", *sitesFile).Msg("Error while loading sites config")
	}
	defer resolver.Close()

	blockStore := banstore.NewStore(*banGCInterval)
	defer blockStore.Close()

	selector := balancer.NewSelector(*listenAddr)
	forwarder := proxy.NewForwarder(logger, "wafgate", proxy.WithTimeout(*forwardTimeout))
	results := logging.NewZerologResultsLogger(logger)

	registry := prometheus.NewRegistry()
	metrics := gateway.NewMetrics(registry)

	config := gateway.Config{
		SkipPathPrefixes: splitPrefixes(*skipPaths),
		MaxBodyBytes:     *maxBodyBytes,
	}

	g, err := gateway.New(logger, config, ref, resolver, blockStore, selector, forwarder, results, metrics, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error while creating gateway")
	}

	go func() {
		logger.Info().Str("addr", *adminAddr).Msg("Starting admin listener")
		if err := http.ListenAndServe(*adminAddr, gateway.NewAdminHandler(registry)); err != nil {
			logger.Fatal().Err(err).Msg("Error while running admin listener")
		}
	}()

	logger.Info().Str("addr", *listenAddr).Msg("Starting WAF gateway")
	if err := http.ListenAndServe(*listenAddr, g); err != nil {
		logger.Fatal().Err(err).Msg("Error while running WAF gateway")
	}
}

func splitPrefixes(s string) (prefixes []string) {
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return
}
