// Package main is the entry point for the edge admission gateway: an HTTP
// front that decides, per request, whether to forward traffic to the origin
// or reject it, based on a shared per-client counter.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"edgegate/api"
	"edgegate/metrics"
	"edgegate/middleware"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	port := flag.Int("p", 8080, "Port to run the gateway on")
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	logLevelStr := flag.String("log-level", "info", "Logging level (trace, debug, info, warn, error, fatal, panic)")
	upstream := flag.String("upstream", "http://localhost:8081", "Origin URL admitted requests are forwarded to")
	filterKey := flag.String("filter", "edge_admission", "Config key of the admission filter to apply")
	identityHeader := flag.String("identity-header", "X-Forwarded-For", "Trusted proxy header carrying the client address")
	flag.Parse()

	logLevel, err := zerolog.ParseLevel(*logLevelStr)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", *logLevelStr).Msg("Invalid log level provided")
	}
	zerolog.SetGlobalLevel(logLevel)

	log.Info().Str("config_path", *configPath).Msg("Starting gateway initialization")

	filters, _, closer, err := api.NewFiltersFromConfigPath(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", *configPath).Msg("Gateway startup failed: error initializing admission filters")
	}
	defer closer.Close()

	filter, ok := filters[*filterKey]
	if !ok {
		log.Fatal().Str("filter_key", *filterKey).Msg("Gateway startup failed: admission filter key not found in config")
	}

	target, err := url.Parse(*upstream)
	if err != nil {
		log.Fatal().Err(err).Str("upstream", *upstream).Msg("Gateway startup failed: invalid upstream URL")
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("upstream", target.String()).Msg("Origin unreachable")
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	admissionMetrics := metrics.NewAdmissionMetrics(prometheus.DefaultRegisterer)
	admissionMiddleware := middleware.NewAdmissionMiddleware(filter, admissionMetrics, *filterKey)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/", admissionMiddleware.Handle(proxy.ServeHTTP, middleware.TrustedHeaderIdentity(*identityHeader)))

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("address", addr).Str("upstream", target.String()).Str("filter", *filterKey).Msg("Starting gateway")
	log.Fatal().Err(http.ListenAndServe(addr, mux)).Str("address", addr).Msg("Gateway stopped")
}
