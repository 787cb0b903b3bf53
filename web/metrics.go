package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics are registered on a registry of the server's own, so that several servers (tests) can coexist.
type metrics struct {
	registry *prometheus.Registry
	ops      *prometheus.CounterVec
	logins   *prometheus.CounterVec
	items    *prometheus.GaugeVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopping",
			Name:      "operations_total",
			Help:      "List operations by kind and outcome.",
		}, []string{"op", "result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopping",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"result"}),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "shopping",
			Name:      "items",
			Help:      "Items on the list as last rendered, by state.",
		}, []string{"state"}),
	}
	m.registry.MustRegister(
		m.ops,
		m.logins,
		m.items,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ops.WithLabelValues(op, result).Inc()
}
