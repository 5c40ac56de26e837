// Package metrics defines the prometheus collectors of the rating service.
// All methods are safe on a nil *Metrics so components can run unmetered.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "courseratings"

type Metrics struct {
	widgetsMounted *prometheus.CounterVec
	widgetsFailed  *prometheus.CounterVec
	toggles        prometheus.Counter
	renders        *prometheus.HistogramVec
	imported       *prometheus.CounterVec
	referenceTerms prometheus.Gauge
	widgetsLive    prometheus.Gauge
	widgetsEvicted *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		widgetsMounted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widgets_mounted_total",
			Help:      "Widgets built successfully, by kind (course or average).",
		}, []string{"kind"}),
		widgetsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widgets_failed_total",
			Help:      "Widgets that could not be built, by reason.",
		}, []string{"reason"}),
		toggles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visibility_toggles_total",
			Help:      "Series visibility changes handled.",
		}),
		renders: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_seconds",
			Help:      "Chart render latency by output format.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
		imported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_imported_total",
			Help:      "Rating points written to the store, by source.",
		}, []string{"source"}),
		referenceTerms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reference_terms",
			Help:      "Terms covered by the active reference table.",
		}),
		widgetsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "widgets_live",
			Help:      "Widgets held in the registry.",
		}),
		widgetsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widgets_evicted_total",
			Help:      "Widgets dropped from the registry, by reason (idle or capacity).",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.widgetsMounted, m.widgetsFailed, m.toggles, m.renders, m.imported, m.referenceTerms,
			m.widgetsLive, m.widgetsEvicted)
	}
	return m
}

func (m *Metrics) WidgetMounted(kind string) {
	if m == nil {
		return
	}
	m.widgetsMounted.WithLabelValues(kind).Inc()
}

func (m *Metrics) WidgetFailed(reason string) {
	if m == nil {
		return
	}
	m.widgetsFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) Toggled() {
	if m == nil {
		return
	}
	m.toggles.Inc()
}

func (m *Metrics) Rendered(format string, d time.Duration) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(format).Observe(d.Seconds())
}

func (m *Metrics) Imported(source string, n int) {
	if m == nil {
		return
	}
	m.imported.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ReferenceTerms(n int) {
	if m == nil {
		return
	}
	m.referenceTerms.Set(float64(n))
}

func (m *Metrics) WidgetsLive(n int) {
	if m == nil {
		return
	}
	m.widgetsLive.Set(float64(n))
}

func (m *Metrics) WidgetEvicted(reason string) {
	if m == nil {
		return
	}
	m.widgetsEvicted.WithLabelValues(reason).Inc()
}
