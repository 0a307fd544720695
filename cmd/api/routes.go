package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FACorreiaa/dues-tracker/pkg/middleware"
)

// Routes builds the public HTTP surface: the import API behind CORS, rate limiting and
// request logging, plus health and metrics endpoints.
func (d *Dependencies) Routes() http.Handler {
	mux := http.NewServeMux()
	d.ImportHandler.Register(mux)
	mux.HandleFunc("GET /healthz", healthz)
	mux.Handle("GET /metrics", MetricsHandler(d.Registry))

	httpCfg := d.Config.HTTP
	return middleware.Chain(mux,
		middleware.Logging(d.Logger),
		middleware.CORS(httpCfg.AllowedOrigins),
		middleware.RateLimit(httpCfg.RateLimit, httpCfg.RateBurst),
	)
}

// MetricsHandler exposes reg in the Prometheus text format
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
