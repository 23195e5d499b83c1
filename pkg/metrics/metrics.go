package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector holds all Prometheus metrics for generation, delivery and the API
type Collector struct {
	// Generation metrics
	RecordsGenerated  *prometheus.CounterVec
	ComponentDuration *prometheus.HistogramVec
	ScenarioEntities  *prometheus.GaugeVec
	InvariantFailures prometheus.Counter
	GenerationRuns    *prometheus.CounterVec

	// Delivery metrics
	BatchesDelivered *prometheus.CounterVec
	RecordsInserted  *prometheus.CounterVec
	RecordsFailed    *prometheus.CounterVec
	DeliveryLatency  *prometheus.HistogramVec

	// API and store metrics
	APIRequests  *prometheus.CounterVec
	APILatency   *prometheus.HistogramVec
	StoreRecords *prometheus.GaugeVec

	// Error handling metrics
	ErrorMetrics *ErrorMetrics

	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewCollector creates a collector backed by a private registry
func NewCollector(logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		logger:   logger,
	}

	c.initMetrics()
	c.registerMetrics()

	c.ErrorMetrics = NewErrorMetrics(registry)

	return c
}

func (c *Collector) initMetrics() {
	// Generation metrics
	c.RecordsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_records_generated_total",
			Help: "Total number of records generated per collection",
		},
		[]string{"collection"},
	)

	c.ComponentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudsim_component_duration_seconds",
			Help:    "Time spent in each generator component",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"component"},
	)

	c.ScenarioEntities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fraudsim_scenario_entities",
			Help: "Entities taking part in each embedded fraud scenario for the last run",
		},
		[]string{"scenario"},
	)

	c.InvariantFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fraudsim_invariant_failures_total",
			Help: "Total number of runs that failed the cross-dataset consistency checks",
		},
	)

	c.GenerationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_generation_runs_total",
			Help: "Total number of generator runs by result",
		},
		[]string{"result"},
	)

	// Delivery metrics
	c.BatchesDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_batches_delivered_total",
			Help: "Total number of batches handed to a sink by outcome",
		},
		[]string{"sink", "collection", "outcome"},
	)

	c.RecordsInserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_records_inserted_total",
			Help: "Total number of records accepted by a sink",
		},
		[]string{"sink", "collection"},
	)

	c.RecordsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_records_failed_total",
			Help: "Total number of records rejected by a sink or lost with a failed batch",
		},
		[]string{"sink", "collection"},
	)

	c.DeliveryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudsim_delivery_latency_seconds",
			Help:    "Batch delivery latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink", "collection"},
	)

	// API and store metrics
	c.APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	c.APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudsim_api_latency_seconds",
			Help:    "API request latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	c.StoreRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fraudsim_store_records",
			Help: "Current number of records held per collection",
		},
		[]string{"collection"},
	)
}

func (c *Collector) registerMetrics() {
	c.registry.MustRegister(c.RecordsGenerated)
	c.registry.MustRegister(c.ComponentDuration)
	c.registry.MustRegister(c.ScenarioEntities)
	c.registry.MustRegister(c.InvariantFailures)
	c.registry.MustRegister(c.GenerationRuns)

	c.registry.MustRegister(c.BatchesDelivered)
	c.registry.MustRegister(c.RecordsInserted)
	c.registry.MustRegister(c.RecordsFailed)
	c.registry.MustRegister(c.DeliveryLatency)

	c.registry.MustRegister(c.APIRequests)
	c.registry.MustRegister(c.APILatency)
	c.registry.MustRegister(c.StoreRecords)

	// Process and Go runtime metrics
	c.registry.MustRegister(collectors.NewGoCollector())
	c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// ObserveComponent records how long a generator component took
func (c *Collector) ObserveComponent(component string, started time.Time) {
	c.ComponentDuration.WithLabelValues(component).Observe(time.Since(started).Seconds())
}

// Registry exposes the private registry, mainly for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Server creates an HTTP server for metrics exposition
type Server struct {
	collector *Collector
	server    *http.Server
	logger    *zap.Logger
}

// NewServer creates a new metrics HTTP server
func NewServer(addr string, collector *Collector, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		collector: collector,
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger,
	}
}

// Start starts the metrics HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting metrics server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info("Stopping metrics server")
	return s.server.Close()
}
