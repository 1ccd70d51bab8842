package metrics

import "github.com/prometheus/client_golang/prometheus"

var breakerStates = []string{"closed", "half-open", "open"}

func registerBreakerState(registry *prometheus.Registry) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "breaker_state",
			Help:      "1 for the current circuit breaker state of an upstream operation.",
		},
		[]string{"service", "operation", "state"},
	)
	registry.MustRegister(gauge)
	return gauge
}

func setBreakerState(gauge *prometheus.GaugeVec, service, operation, state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		gauge.WithLabelValues(service, operation, s).Set(value)
	}
}
