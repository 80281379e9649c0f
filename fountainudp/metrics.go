package fountainudp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts receiver-side events. Pass the registry the serving binary
// exposes; a nil *Metrics is valid and counts nothing.
type Metrics struct {
	datagramsReceived prometheus.Counter
	metaDatagrams     prometheus.Counter
	symbolsFed        prometheus.Counter
	symbolsDuplicate  prometheus.Counter
	symbolsOrphaned   prometheus.Counter
	transfersDecoded  prometheus.Counter
	decodeSeconds     prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		datagramsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "fountain_datagrams_received_total",
			Help: "Datagrams accepted by the receiver.",
		}),
		metaDatagrams: f.NewCounter(prometheus.CounterOpts{
			Name: "fountain_meta_datagrams_total",
			Help: "Meta datagrams carrying the file header.",
		}),
		symbolsFed: f.NewCounter(prometheus.CounterOpts{
			Name: "fountain_symbols_fed_total",
			Help: "Coded symbols fed into the decoder.",
		}),
		symbolsDuplicate: f.NewCounter(prometheus.CounterOpts{
			Name: "fountain_symbols_duplicate_total",
			Help: "Symbols discarded as duplicates.",
		}),
		symbolsOrphaned: f.NewCounter(prometheus.CounterOpts{
			Name: "fountain_symbols_orphaned_total",
			Help: "Symbols discarded because no file header arrived yet.",
		}),
		transfersDecoded: f.NewCounter(prometheus.CounterOpts{
			Name: "fountain_transfers_decoded_total",
			Help: "Transfers fully decoded.",
		}),
		decodeSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fountain_decode_seconds",
			Help:    "Wall time from first datagram to solved decode.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
}

func (m *Metrics) datagramReceived() {
	if m != nil {
		m.datagramsReceived.Inc()
	}
}

func (m *Metrics) metaDatagram() {
	if m != nil {
		m.metaDatagrams.Inc()
	}
}

func (m *Metrics) symbolFed() {
	if m != nil {
		m.symbolsFed.Inc()
	}
}

func (m *Metrics) symbolDuplicate() {
	if m != nil {
		m.symbolsDuplicate.Inc()
	}
}

func (m *Metrics) symbolOrphaned() {
	if m != nil {
		m.symbolsOrphaned.Inc()
	}
}

func (m *Metrics) transferDecoded(elapsed time.Duration) {
	if m != nil {
		m.transfersDecoded.Inc()
		m.decodeSeconds.Observe(elapsed.Seconds())
	}
}
