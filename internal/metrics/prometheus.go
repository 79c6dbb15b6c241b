package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
)

const namespace = "autoscaler"

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal         *prometheus.CounterVec
	decisionsTotal      *prometheus.CounterVec
	cycleDuration       *prometheus.HistogramVec
	completionTime      *prometheus.GaugeVec
	clusterNodes        *prometheus.GaugeVec
	circuitBreakerState *prometheus.GaugeVec
	eventsDropped       *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics, registered on their own registry.
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New builds a fresh set of collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Decision cycles run, partitioned by outcome and error kind.",
			},
			[]string{"cluster_id", "outcome", "error_kind"},
		),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Scaling decisions taken, partitioned by action.",
			},
			[]string{"cluster_id", "action"},
		),
		cycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Decision cycle latency in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"cluster_id"},
		),
		completionTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "forecast_completion_time",
				Help:      "Most recent forecast of the average task completion time.",
			},
			[]string{"cluster_id"},
		),
		clusterNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cluster_nodes",
				Help:      "Node count of the cluster's first node pool after the last cycle.",
			},
			[]string{"cluster_id", "node_pool"},
		),
		circuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Cycle circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		eventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Cycle events lost because a subscriber fell behind.",
			},
			[]string{"event_type"},
		),
	}

	if err := m.Register(m.registry); err != nil {
		logger.Errorf("Failed to register metrics: %v", err)
	}
	return m
}

// Register attaches the collectors to reg. Collectors already present are skipped.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.cyclesTotal,
		m.decisionsTotal,
		m.cycleDuration,
		m.completionTime,
		m.clusterNodes,
		m.circuitBreakerState,
		m.eventsDropped,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCycle records a finished cycle. errorKind is empty on success.
func (m *Metrics) ObserveCycle(clusterID, outcome, errorKind string, duration time.Duration) {
	m.cyclesTotal.WithLabelValues(clusterID, outcome, errorKind).Inc()
	if duration < 0 {
		duration = 0
	}
	m.cycleDuration.WithLabelValues(clusterID).Observe(duration.Seconds())
}

func (m *Metrics) IncSkippedCycle(clusterID string) {
	m.cyclesTotal.WithLabelValues(clusterID, OutcomeSkipped, "").Inc()
}

func (m *Metrics) IncDecision(clusterID, action string) {
	m.decisionsTotal.WithLabelValues(clusterID, action).Inc()
}

func (m *Metrics) SetCompletionTime(clusterID string, prediction float64) {
	m.completionTime.WithLabelValues(clusterID).Set(prediction)
}

func (m *Metrics) SetNodeCount(clusterID, nodePool string, count int) {
	m.clusterNodes.WithLabelValues(clusterID, nodePool).Set(float64(count))
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) IncDroppedEvent(eventType string) {
	m.eventsDropped.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer exposes /metrics on a dedicated port.
func StartServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
	return server
}
