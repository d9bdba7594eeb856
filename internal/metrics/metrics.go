// Package metrics exposes credential lifecycle counters in Prometheus format.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/authkeeper/internal/model"
)

// Operation names.
const (
	OpRegister      = "register"
	OpActivate      = "activate"
	OpResetPassword = "reset_password"
	OpLogin         = "login"
	OpIssue         = "issue"
	OpRefresh       = "refresh"
	OpRevoke        = "revoke"
	OpPurge         = "purge"
)

// Outcome labels.
const (
	OutcomeSuccess           = "success"
	OutcomeValidation        = "validation"
	OutcomeConflict          = "conflict"
	OutcomeInvalidCredential = "invalid_credential"
	OutcomeStore             = "store_error"
	OutcomeError             = "error"
)

// Recorder counts finished operations by outcome.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	purged     prometheus.Counter
}

// New creates a Recorder with its own registry, including Go runtime and
// process collectors.
func New() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authkeeper",
			Name:      "operations_total",
			Help:      "Credential lifecycle operations by outcome.",
		}, []string{"operation", "outcome"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authkeeper",
			Name:      "refresh_tokens_purged_total",
			Help:      "Expired refresh tokens removed by the purger.",
		}),
	}

	registry.MustRegister(
		r.operations,
		r.purged,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Observe records one finished operation. A nil Recorder is a no-op.
func (r *Recorder) Observe(operation string, err error) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, Outcome(err)).Inc()
}

// Purged adds n to the purged refresh tokens counter.
func (r *Recorder) Purged(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.purged.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Outcome maps an operation error to its label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, model.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, model.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, model.ErrInvalidCredential):
		return OutcomeInvalidCredential
	case errors.Is(err, model.ErrStore):
		return OutcomeStore
	default:
		return OutcomeError
	}
}
