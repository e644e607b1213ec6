// Package metrics holds the Prometheus collectors exported by the bot.
//
// All recording methods are safe to call on a nil *Metrics so packages can be
// used (and tested) without a registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "obsidion"

// Metrics wraps the Prometheus collectors for the bot
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal   *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	guilds          prometheus.Gauge
	botListPosts    *prometheus.CounterVec
}

// New creates a registry with the Go/process collectors and the bot's own metrics
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,

		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of slash command invocations",
			},
			[]string{"command", "outcome"},
		),

		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),

		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_seconds",
				Help:      "Latency of upstream REST calls",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"host", "status"},
		),

		guilds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "guilds",
				Help:      "Number of guilds the bot is a member of",
			},
		),

		botListPosts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "botlist_posts_total",
				Help:      "Guild count posts to bot listing sites",
			},
			[]string{"site", "outcome"},
		),
	}

	registry.MustRegister(
		m.commandsTotal,
		m.cacheLookups,
		m.upstreamLatency,
		m.guilds,
		m.botListPosts,
	)

	return m
}

// Registry returns the underlying registry (for the /metrics handler)
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CommandInvoked counts a command invocation; outcome is "ok", "error" or "cooldown"
func (m *Metrics) CommandInvoked(command, outcome string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) CacheError() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("error").Inc()
}

// ObserveUpstream records one upstream call. status 0 means a transport failure.
func (m *Metrics) ObserveUpstream(host string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamLatency.WithLabelValues(host, label).Observe(d.Seconds())
}

func (m *Metrics) SetGuilds(n int) {
	if m == nil {
		return
	}
	m.guilds.Set(float64(n))
}

func (m *Metrics) BotListPosted(site string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.botListPosts.WithLabelValues(site, outcome).Inc()
}
