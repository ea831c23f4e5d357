// Package metrics exposes Prometheus instrumentation for document loads.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Caption outcomes.
const (
	CaptionOK          = "captioned"
	CaptionEmpty       = "empty"
	CaptionFailed      = "failed"
	CaptionUnsupported = "unsupported"
)

// Collector groups the loader metrics.
type Collector struct {
	loads     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	documents *prometheus.CounterVec
	captions  *prometheus.CounterVec
}

// New creates the loader metrics and registers them with reg. A nil reg
// leaves the metrics unregistered, which is useful in tests.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdloader_loads_total",
				Help: "Total number of document loads, by format and outcome",
			},
			[]string{"format", "status"},
		),
		// Conversion of local files is fast; remote conversion and
		// captioning push loads into tens of seconds.
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mdloader_load_duration_seconds",
				Help:    "Duration of document loads in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"format"},
		),
		documents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdloader_documents_total",
				Help: "Total number of documents produced",
			},
			[]string{"format"},
		),
		captions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdloader_captions_total",
				Help: "Total number of image caption attempts, by outcome",
			},
			[]string{"status"},
		),
	}
}

// ObserveLoad records one finished load.
func (c *Collector) ObserveLoad(format, status string, elapsed time.Duration, documents int) {
	if c == nil {
		return
	}
	c.loads.WithLabelValues(format, status).Inc()
	c.duration.WithLabelValues(format).Observe(elapsed.Seconds())
	if documents > 0 {
		c.documents.WithLabelValues(format).Add(float64(documents))
	}
}

// ObserveCaption records one caption attempt.
func (c *Collector) ObserveCaption(status string) {
	if c == nil {
		return
	}
	c.captions.WithLabelValues(status).Inc()
}
