package reporting

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Cucumber step and scenario statuses
const (
	StatusPassed    = "passed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusPending   = "pending"
	StatusUndefined = "undefined"
)

var statusOrder = []string{StatusPassed, StatusFailed, StatusSkipped, StatusPending, StatusUndefined}

// StatusCounts counts items by Cucumber status
type StatusCounts map[string]int

// Total is the sum over all statuses
func (c StatusCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// CucumberSummary counts features, scenarios and steps of a Cucumber JSON report
type CucumberSummary struct {
	Path      string
	Features  int
	Scenarios StatusCounts
	Steps     StatusCounts
}

// ParseCucumberJSON summarizes a Cucumber JSON report. A missing file yields an empty summary.
func ParseCucumberJSON(path string) (*CucumberSummary, error) {
	summary := &CucumberSummary{
		Path:      path,
		Scenarios: make(StatusCounts),
		Steps:     make(StatusCounts),
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return summary, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cucumber report %s: %w", path, err)
	}
	if len(content) == 0 {
		return summary, nil
	}
	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("cucumber report %s is not valid JSON", path)
	}

	features := gjson.ParseBytes(content)
	if !features.IsArray() {
		return nil, fmt.Errorf("cucumber report %s: expected a list of features", path)
	}

	features.ForEach(func(_, feature gjson.Result) bool {
		summary.Features++
		feature.Get("elements").ForEach(func(_, element gjson.Result) bool {
			stepStatuses := make([]string, 0)
			element.Get("steps").ForEach(func(_, step gjson.Result) bool {
				status := step.Get("result.status").String()
				if status == "" {
					status = StatusUndefined
				}
				summary.Steps[status]++
				stepStatuses = append(stepStatuses, status)
				return true
			})
			// backgrounds contribute steps but are not scenarios
			if element.Get("type").String() != "background" {
				summary.Scenarios[scenarioStatus(stepStatuses)]++
			}
			return true
		})
		return true
	})
	return summary, nil
}

// scenarioStatus is failed if any step failed, otherwise the first non-passing status, otherwise passed
func scenarioStatus(stepStatuses []string) string {
	status := StatusPassed
	for _, s := range stepStatuses {
		if s == StatusFailed {
			return StatusFailed
		}
		if s != StatusPassed && status == StatusPassed {
			status = s
		}
	}
	return status
}
