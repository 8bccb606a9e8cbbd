// Package reporting summarizes the Surefire and Cucumber reports produced by a Maven test run.
package reporting

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const surefireReportPattern = "TEST-*.xml"

// SuiteCounts are the counts Surefire records for one test suite
type SuiteCounts struct {
	Name     string
	Tests    int
	Failures int
	Errors   int
	Skipped  int
	Time     time.Duration
}

// Passed is the number of tests that neither failed, errored nor were skipped
func (c SuiteCounts) Passed() int {
	passed := c.Tests - c.Failures - c.Errors - c.Skipped
	if passed < 0 {
		return 0
	}
	return passed
}

// SurefireSummary holds per-suite counts and their total
type SurefireSummary struct {
	Dir    string
	Suites []SuiteCounts
	Total  SuiteCounts
}

type surefireSuite struct {
	XMLName  xml.Name `xml:"testsuite"`
	Name     string   `xml:"name,attr"`
	Tests    string   `xml:"tests,attr"`
	Failures string   `xml:"failures,attr"`
	Errors   string   `xml:"errors,attr"`
	Skipped  string   `xml:"skipped,attr"`
	Time     string   `xml:"time,attr"`
}

// ParseSurefireDir reads every TEST-*.xml report in dir. A missing directory yields an empty
// summary.
func ParseSurefireDir(dir string) (*SurefireSummary, error) {
	summary := &SurefireSummary{Dir: dir, Total: SuiteCounts{Name: "TOTAL"}}

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return summary, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), surefireReportPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search surefire reports in %s: %w", dir, err)
	}
	sort.Strings(matches)

	for _, match := range matches {
		path := filepath.Join(dir, match)
		suite, err := parseSurefireReport(path)
		if err != nil {
			return nil, err
		}
		summary.Suites = append(summary.Suites, suite)
		summary.Total.Tests += suite.Tests
		summary.Total.Failures += suite.Failures
		summary.Total.Errors += suite.Errors
		summary.Total.Skipped += suite.Skipped
		summary.Total.Time += suite.Time
	}
	return summary, nil
}

func parseSurefireReport(path string) (SuiteCounts, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return SuiteCounts{}, fmt.Errorf("failed to read surefire report %s: %w", path, err)
	}
	var raw surefireSuite
	if err := xml.Unmarshal(content, &raw); err != nil {
		return SuiteCounts{}, fmt.Errorf("failed to parse surefire report %s: %w", path, err)
	}

	counts := SuiteCounts{Name: raw.Name}
	if counts.Name == "" {
		counts.Name = strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "TEST-"), ".xml")
	}
	fields := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"tests", raw.Tests, &counts.Tests},
		{"failures", raw.Failures, &counts.Failures},
		{"errors", raw.Errors, &counts.Errors},
		{"skipped", raw.Skipped, &counts.Skipped},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(f.raw))
		if err != nil {
			return SuiteCounts{}, fmt.Errorf("surefire report %s: invalid %s count %q", path, f.name, f.raw)
		}
		*f.dst = n
	}

	// surefire formats large times with grouping separators, e.g. "1,234.5"
	if t := strings.ReplaceAll(strings.TrimSpace(raw.Time), ",", ""); t != "" {
		seconds, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return SuiteCounts{}, fmt.Errorf("surefire report %s: invalid time %q", path, raw.Time)
		}
		counts.Time = time.Duration(seconds * float64(time.Second))
	}
	return counts, nil
}
