// Package telemetry counts what the harness does to the cluster and
// snapshots those counters into the run's dashboards directory.
package telemetry

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
)

const metricsPrefix = "systemtest_"

const (
	kindLabel    = "kind"
	checkLabel   = "check"
	outcomeLabel = "outcome"
)

// Telemetry carries the run counters. Each instance owns a private registry,
// so suites running many testcases in one process never collide on
// registration.
type Telemetry struct {
	registry *prometheus.Registry

	remoteCommands *prometheus.CounterVec
	remoteFailures *prometheus.CounterVec
	validations    *prometheus.CounterVec
	testcases      *prometheus.CounterVec
}

func New() *Telemetry {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Telemetry{
		registry: registry,
		remoteCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "remote_commands_total",
				Help: "Counter for gateway operations by kind",
			},
			[]string{kindLabel}),
		remoteFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "remote_command_failures_total",
				Help: "Counter for failed gateway operations by kind",
			},
			[]string{kindLabel}),
		validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "validations_total",
				Help: "Counter for validation checks by check name and outcome",
			},
			[]string{checkLabel, outcomeLabel}),
		testcases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "testcases_total",
				Help: "Counter for completed testcases by outcome",
			},
			[]string{outcomeLabel}),
	}
}

func (t *Telemetry) RecordValidation(check string, outcome testcase.Outcome) {
	t.validations.WithLabelValues(check, string(outcome)).Inc()
}

func (t *Telemetry) RecordTestcase(outcome testcase.Outcome) {
	t.testcases.WithLabelValues(string(outcome)).Inc()
}

func (t *Telemetry) recordRemote(kind string, err error) {
	t.remoteCommands.WithLabelValues(kind).Inc()
	if err != nil {
		t.remoteFailures.WithLabelValues(kind).Inc()
	}
}

// WriteTextfile snapshots every counter to path in the text exposition
// format.
func (t *Telemetry) WriteTextfile(path string) error {
	families, err := t.registry.Gather()
	if err != nil {
		return errors.WithStack(err)
	}
	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(os.WriteFile(path, buf.Bytes(), 0644))
}
