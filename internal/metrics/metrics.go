package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for LedgerRequests.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeReverted    = "reverted"
	OutcomeDecodeError = "decode_error"
)

var (
	LedgerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_ledger_requests_total",
		Help: "Ledger round trips by operation and outcome",
	}, []string{"operation", "outcome"})

	EventsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_events_decoded_total",
		Help: "Registry event logs decoded by event name",
	}, []string{"event"})

	CursorBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "registry_cursor_next_block",
		Help: "Next block the watcher will poll from",
	})

	ChainHead = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "registry_chain_head_block",
		Help: "Latest block reported by the node after a poll",
	})

	CursorLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "registry_cursor_lag_blocks",
		Help: "Blocks between the chain head and the watcher cursor",
	})

	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "registry_poll_duration_seconds",
		Help:    "Duration of one watcher poll including retries",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
