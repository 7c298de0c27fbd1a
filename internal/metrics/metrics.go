package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	StockMutations      *prometheus.CounterVec
	MovementsDropped    prometheus.Counter
	SinkFailures        *prometheus.CounterVec
	NotificationsPushed prometheus.Counter
	DispatchRejected    prometheus.Counter
	OpenChannels        prometheus.Gauge
	ChannelDecodeErrors prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StockMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmastock_stock_mutations_total",
			Help: "Stock mutations by operation and result",
		}, []string{"operation", "result"}),
		MovementsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "pharmastock_movements_dropped_total",
			Help: "Stock movements dropped because the movement queue was full",
		}),
		SinkFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmastock_sink_failures_total",
			Help: "Stock movements a sink failed to consume",
		}, []string{"sink"}),
		NotificationsPushed: f.NewCounter(prometheus.CounterOpts{
			Name: "pharmastock_notifications_pushed_total",
			Help: "Notification batches written to user channels",
		}),
		DispatchRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "pharmastock_dispatch_rejected_total",
			Help: "Notification jobs rejected because the dispatch queue was full",
		}),
		OpenChannels: f.NewGauge(prometheus.GaugeOpts{
			Name: "pharmastock_open_channels",
			Help: "Currently open notification channels",
		}),
		ChannelDecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "pharmastock_channel_decode_errors_total",
			Help: "Inbound channel frames that failed to decode",
		}),
	}
}

func (m *Metrics) ObserveMutation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StockMutations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) IncMovementsDropped() {
	if m == nil {
		return
	}
	m.MovementsDropped.Inc()
}

func (m *Metrics) IncSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncNotificationsPushed() {
	if m == nil {
		return
	}
	m.NotificationsPushed.Inc()
}

func (m *Metrics) IncDispatchRejected() {
	if m == nil {
		return
	}
	m.DispatchRejected.Inc()
}

func (m *Metrics) ChannelOpened() {
	if m == nil {
		return
	}
	m.OpenChannels.Inc()
}

func (m *Metrics) ChannelClosed() {
	if m == nil {
		return
	}
	m.OpenChannels.Dec()
}

func (m *Metrics) IncDecodeErrors() {
	if m == nil {
		return
	}
	m.ChannelDecodeErrors.Inc()
}
