package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"placereviews/internal/domain"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "placereviews", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "placereviews", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ScrapeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "placereviews", Name: "scrapes_total", Help: "Page scrapes by operation and outcome."},
		[]string{"op", "outcome"},
	)
	ScrapeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "placereviews", Name: "scrape_duration_seconds",
			Help:    "End-to-end scrape duration seconds.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
		[]string{"op"},
	)
	LoaderIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "placereviews", Name: "loader_iterations",
			Help:    "Scroll iterations per load, by stop reason.",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 40, 50},
		},
		[]string{"reason"},
	)
	ReviewsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "placereviews", Name: "reviews_extracted_total", Help: "Review records returned after dedupe."},
		[]string{"mode"},
	)
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "placereviews", Name: "tool_calls_total", Help: "MCP tool calls."},
		[]string{"tool", "outcome"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "placereviews", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

// Serve exposes the default registry on addr in the background. An empty
// addr disables it.
func Serve(addr string) {
	if addr == "" {
		return // disabled
	}
	Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// Register adds the collectors to the default registry used by Serve.
func Register() {
	for _, c := range collectors() {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				log.Warn().Err(err).Msg("metrics register failed")
			}
		}
	}
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors()...)
	return reg
}

func collectors() []prometheus.Collector {
	return []prometheus.Collector{HTTPRequests, HTTPLatency, ScrapeRequests, ScrapeLatency, LoaderIterations, ReviewsExtracted, ToolCalls, CacheEvents}
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveTool(tool string, err error) {
	ToolCalls.WithLabelValues(tool, LabelErr(err)).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// LabelErr maps an error to a low-cardinality label value.
func LabelErr(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNavigation):
		return "navigation"
	case errors.Is(err, domain.ErrPage):
		return "page"
	default:
		return fmt.Sprintf("%T", err)
	}
}

// Scrape records service-level scrape metrics. The zero value is ready to use.
type Scrape struct{}

func (Scrape) ObserveScrape(op string, err error, dur time.Duration) {
	ScrapeRequests.WithLabelValues(op, LabelErr(err)).Inc()
	ScrapeLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func (Scrape) ObserveLoad(reason string, iterations int) {
	LoaderIterations.WithLabelValues(reason).Observe(float64(iterations))
}

func (Scrape) ObserveExtracted(mode string, n int) {
	ReviewsExtracted.WithLabelValues(mode).Add(float64(n))
}
