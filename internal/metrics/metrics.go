package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gcs_frames_total",
			Help: "Total number of inbound stream frames by classification.",
		},
		[]string{"kind"},
	)

	framesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gcs_frames_dropped_total",
			Help: "Frames discarded because they failed to parse or resolve.",
		},
	)

	reconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gcs_stream_reconnects_total",
			Help: "Total number of stream reconnect attempts.",
		},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gcs_commands_total",
			Help: "Operator command submissions by outcome.",
		},
		[]string{"outcome"},
	)

	knownNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gcs_known_nodes",
			Help: "Number of nodes currently in the telemetry store.",
		},
	)

	connectionUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gcs_connection_up",
			Help: "1 while the telemetry stream is open, 0 otherwise.",
		},
	)
)

func init() {
	prometheus.MustRegister(framesTotal)
	prometheus.MustRegister(framesDroppedTotal)
	prometheus.MustRegister(reconnectsTotal)
	prometheus.MustRegister(commandsTotal)
	prometheus.MustRegister(knownNodes)
	prometheus.MustRegister(connectionUp)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncFrame counts one classified inbound frame.
func IncFrame(kind string) {
	framesTotal.WithLabelValues(kind).Inc()
}

// IncDroppedFrame counts one discarded frame.
func IncDroppedFrame() {
	framesDroppedTotal.Inc()
}

// IncReconnect counts one reconnect attempt.
func IncReconnect() {
	reconnectsTotal.Inc()
}

// IncCommand counts one command submission with its outcome
// ("ok", "rejected", or "transport").
func IncCommand(outcome string) {
	commandsTotal.WithLabelValues(outcome).Inc()
}

// SetKnownNodes records the current store size.
func SetKnownNodes(n int) {
	knownNodes.Set(float64(n))
}

// SetConnected records whether the stream is open.
func SetConnected(up bool) {
	if up {
		connectionUp.Set(1)
	} else {
		connectionUp.Set(0)
	}
}
