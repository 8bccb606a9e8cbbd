package uat

import (
	"github.com/ethereum-optimism/infra/op-uat/metrics"
)

// MetricsReporter is responsible for reporting metrics from step results.
type MetricsReporter interface {
	ReportResults(run *StepRun)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the sub-step results to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(run *StepRun) {
	if run == nil {
		return
	}
	for _, result := range run.Results {
		metrics.RecordStepResult(result)
	}
}
