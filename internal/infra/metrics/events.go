package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		eventsPublishedTotal,
		eventsDroppedTotal,
		eventSubscribers,
		eventRelayErrorsTotal,
	)
}

var (
	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events broadcast on the in-process bus by kind.",
		},
		[]string{"kind"},
	)

	eventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Events not delivered because a subscriber queue was full.",
		},
	)

	eventSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_subscribers",
			Help: "Currently attached event subscribers (SSE sessions, cache consumers).",
		},
	)

	eventRelayErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_relay_errors_total",
			Help: "Cross-instance relay failures by transport and operation.",
		},
		[]string{"transport", "op"}, // op: publish|decode|subscribe
	)
)

func IncEventPublished(kind string) {
	eventsPublishedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncEventDropped() {
	eventsDroppedTotal.Inc()
}

func SetEventSubscribers(n int) {
	eventSubscribers.Set(float64(n))
}

func IncRelayError(transport, op string) {
	eventRelayErrorsTotal.WithLabelValues(norm(transport), norm(op)).Inc()
}
