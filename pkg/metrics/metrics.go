// Package metrics counts facade operations with Prometheus.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultFailure = "failure"
)

// Recorder counts operations by name and outcome. It satisfies
// facade.Observer.
type Recorder struct {
	reg *prometheus.Registry
	ops *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brepfacade",
			Name:      "operations_total",
			Help:      "Facade operations by operation name and result.",
		}, []string{"op", "result"}),
	}
	r.reg.MustRegister(r.ops)
	return r
}

// Observe records one operation.
func (r *Recorder) Observe(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultFailure
	}
	r.ops.WithLabelValues(op, result).Inc()
}

// Registry returns the registry the counters live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Counts returns the current counter values keyed by "op/result".
func (r *Recorder) Counts() (map[string]float64, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var op, result string
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "op":
					op = lp.GetValue()
				case "result":
					result = lp.GetValue()
				}
			}
			out[op+"/"+result] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}
