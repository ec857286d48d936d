// Package metrics exposes Prometheus counters for the protocol engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector owns a private registry so several agents can run in one
// process (tests, the all-in-one binary) without duplicate registration.
// All methods are safe on a nil receiver.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	tasksCreated   prometheus.Counter
	messagesPosted *prometheus.CounterVec
	jobsTotal      *prometheus.CounterVec

	delegationsTotal *prometheus.CounterVec
	delegationPolls  *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a collector whose metrics share the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.tasksCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created",
	})

	c.messagesPosted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_posted_total",
			Help:      "Total number of messages appended to tasks",
		},
		[]string{"role"},
	)

	c.jobsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of supervised background jobs by outcome",
		},
		[]string{"job", "outcome"},
	)

	c.delegationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegations_total",
			Help:      "Total number of delegations to specialist agents by outcome",
		},
		[]string{"role", "outcome"},
	)

	c.delegationPolls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegation_polls_total",
			Help:      "Total number of remote status polls by result",
		},
		[]string{"role", "result"},
	)

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(c.logger),
	})
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTaskCreated counts a newly created task.
func (c *Collector) RecordTaskCreated() {
	if c == nil {
		return
	}
	c.tasksCreated.Inc()
}

// RecordMessagePosted counts an appended message by author role.
func (c *Collector) RecordMessagePosted(role string) {
	if c == nil {
		return
	}
	c.messagesPosted.WithLabelValues(role).Inc()
}

// RecordJob counts a finished background job.
func (c *Collector) RecordJob(job, outcome string) {
	if c == nil {
		return
	}
	c.jobsTotal.WithLabelValues(job, outcome).Inc()
}

// RecordDelegation counts a finished delegation.
func (c *Collector) RecordDelegation(role, outcome string) {
	if c == nil {
		return
	}
	c.delegationsTotal.WithLabelValues(role, outcome).Inc()
}

// RecordPoll counts one remote status poll.
func (c *Collector) RecordPoll(role, result string) {
	if c == nil {
		return
	}
	c.delegationPolls.WithLabelValues(role, result).Inc()
}
