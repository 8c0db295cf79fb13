// Package metrics exports inspection counters and workspace gauges in
// Prometheus format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppecheck/ppecheck/pkg/model"
)

const namespace = "inspection"

// Registry holds the inspection metrics on a private Prometheus registry.
type Registry struct {
	reg                *prometheus.Registry
	sessionsStarted    prometheus.Counter
	submissions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	submitDuration     prometheus.Histogram
}

// NewRegistry creates a registry with all inspection metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Inspection sessions created.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Inspections submitted, labeled by outcome.",
		}, []string{"outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Submission attempts rejected by validation, labeled by reason.",
		}, []string{"reason"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_duration_seconds",
			Help:      "Time from submit request to archived record.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
	r.reg.MustRegister(r.sessionsStarted, r.submissions, r.validationFailures, r.submitDuration)
	// Pre-create label values so dashboards see zeros before the first event.
	for _, o := range []model.Outcome{model.OutcomeSuccess, model.OutcomeSuccessWithIssues} {
		r.submissions.WithLabelValues(string(o))
	}
	return r
}

// SessionStarted counts a new session.
func (r *Registry) SessionStarted() {
	r.sessionsStarted.Inc()
}

// Submitted counts an archived record.
func (r *Registry) Submitted(outcome model.Outcome, took time.Duration) {
	r.submissions.WithLabelValues(string(outcome)).Inc()
	r.submitDuration.Observe(took.Seconds())
}

// ValidationFailed counts a rejected submission; reason is an error code.
func (r *Registry) ValidationFailed(reason string) {
	r.validationFailures.WithLabelValues(reason).Inc()
}

// Register adds extra collectors such as a WorkspaceCollector.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// WithProcessMetrics registers Go runtime and process collectors.
func (r *Registry) WithProcessMetrics() *Registry {
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// StartServer serves /metrics on addr until ctx is cancelled.
func (r *Registry) StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// WriteText prints counter, gauge and untyped samples as
// "name{labels} value" lines, sorted by name.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetUntyped() != nil:
				value = m.GetUntyped().GetValue()
			default:
				continue
			}
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, value))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
