package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-uat/types"
)

const (
	MetricsNamespace = "uat"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	stepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "step_runs_total",
		Help:      "Count of sub-step runs by result",
	}, []string{
		"step",
		"sub_step",
		"environment",
		"result",
	})

	stepDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "step_duration_seconds",
		Help:      "Duration of the last sub-step run",
	}, []string{
		"step",
		"sub_step",
		"environment",
	})

	mavenInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "maven_invocations_total",
		Help:      "Count of Maven invocations by goal and result",
	}, []string{
		"goal",
		"result",
	})

	mavenDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "maven_duration_seconds",
		Help:      "Duration of Maven invocations",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
	}, []string{
		"goal",
	})

	testsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "tests",
		Help:      "Test counts from the last run's reports",
	}, []string{
		"environment",
		"report",
		"status",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordStepResult counts a finished sub-step and records its duration
func RecordStepResult(result *types.StepResult) {
	if result == nil {
		log.Error("RecordStepResult - nil result")
		return
	}
	status := string(result.Status())
	if Debug {
		log.Debug("metric inc",
			"m", "step_runs_total",
			"step", result.StepName,
			"sub_step", result.SubStepName,
			"environment", result.Environment,
			"result", status)
	}
	stepRunsTotal.WithLabelValues(result.StepName, result.SubStepName, result.Environment, status).Inc()
	stepDuration.WithLabelValues(result.StepName, result.SubStepName, result.Environment).Set(result.Duration.Seconds())
}

// RecordMavenInvocation counts a Maven run of goal and observes its duration
func RecordMavenInvocation(goal string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	mavenInvocationsTotal.WithLabelValues(goal, result).Inc()
	mavenDuration.WithLabelValues(goal).Observe(duration.Seconds())
}

// RecordTestCounts sets the per-status counts of a report ("surefire" or "cucumber")
func RecordTestCounts(environment, report string, counts map[string]int) {
	for status, n := range counts {
		testsTotal.WithLabelValues(environment, report, status).Set(float64(n))
	}
}
