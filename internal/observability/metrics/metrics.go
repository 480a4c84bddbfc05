// Package metrics provides Prometheus instrumentation for btube-deploy.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string
	initOnce    sync.Once

	// registry backs both /metrics and Pushgateway pushes
	registry = prometheus.NewRegistry()

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Deploy metrics
	deployTotal    *prometheus.CounterVec
	deployDuration *prometheus.HistogramVec

	// Ledger metrics
	deploymentRecordTotal *prometheus.CounterVec

	// Verification metrics
	verifyTotal *prometheus.CounterVec
)

// Init initializes the metrics system. Collectors are registered once per
// process; later calls only toggle recording.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	initOnce.Do(register)
}

func register() {
	factory := promauto.With(registry)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	deployTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deploy_total",
			Help: "Total number of contract deployments attempted",
		},
		[]string{"network", "status"},
	)

	// Confirmation on public testnets takes tens of seconds
	deployDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deploy_duration_seconds",
			Help:    "Time from submission to confirmation",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"network"},
	)

	deploymentRecordTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployment_record_total",
			Help: "Total number of deployments recorded in the ledger",
		},
		[]string{"status"},
	)

	verifyTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_total",
			Help: "Total number of contract verifications",
		},
		[]string{"network", "result"},
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
