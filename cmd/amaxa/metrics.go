package main

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/briannabrownOE/amaxa/pkg/metrics"
)

// startMetricsServer registers the transport and idset components as
// initializing and serves /metrics, /health, /ready and /live on addr
// in the background. Does nothing if addr is empty.
func startMetricsServer(addr string, logger zerolog.Logger) {
	if addr == "" {
		return
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("transport", false, "initializing")
	metrics.RegisterComponent("idset", false, "initializing")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server exited")
		}
	}()
	logger.Info().Str("addr", addr).Msg("metrics and health endpoints serving")
}
