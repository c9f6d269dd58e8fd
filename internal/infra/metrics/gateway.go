package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayDialLatencyMs) }

var gatewayDialLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "gateway_dial_latency_ms",
		Help:    "Duration of scoped MTProto connections in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
	},
	[]string{"success"},
)

func ObserveGatewayDial(d time.Duration, success bool) {
	gatewayDialLatencyMs.WithLabelValues(strconv.FormatBool(success)).
		Observe(float64(d.Milliseconds()))
}
