package reporting

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SummaryFilename is the name of the rendered summary written next to the step outputs
const SummaryFilename = "uat-summary.txt"

// Summary combines the Surefire and Cucumber summaries of one run
type Summary struct {
	Surefire *SurefireSummary
	Cucumber *CucumberSummary
}

// Summarize parses the Surefire reports directory and the Cucumber JSON report
func Summarize(surefireDir, cucumberJSON string) (*Summary, error) {
	surefire, err := ParseSurefireDir(surefireDir)
	if err != nil {
		return nil, err
	}
	cucumber, err := ParseCucumberJSON(cucumberJSON)
	if err != nil {
		return nil, err
	}
	return &Summary{Surefire: surefire, Cucumber: cucumber}, nil
}

// Failed returns true if either report recorded failures
func (s *Summary) Failed() bool {
	if s.Surefire != nil && (s.Surefire.Total.Failures > 0 || s.Surefire.Total.Errors > 0) {
		return true
	}
	return s.Cucumber != nil && s.Cucumber.Scenarios[StatusFailed] > 0
}

// Table renders the summary as plain text tables
func (s *Summary) Table() string {
	var buf bytes.Buffer
	if s.Surefire != nil {
		buf.WriteString(s.surefireTable())
	}
	if s.Cucumber != nil {
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(s.cucumberTable())
	}
	return buf.String()
}

func (s *Summary) surefireTable() string {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle("Surefire Reports")

	t.AppendHeader(table.Row{"Suite", "Duration", "Tests", "Passed", "Failed", "Errors", "Skipped"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Errors", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	for _, suite := range s.Surefire.Suites {
		t.AppendRow(suiteRow(suite))
	}
	t.AppendFooter(suiteRow(s.Surefire.Total))
	t.SetStyle(table.StyleLight)
	t.Render()
	return buf.String()
}

func suiteRow(c SuiteCounts) table.Row {
	return table.Row{c.Name, formatElapsed(c.Time), c.Tests, c.Passed(), c.Failures, c.Errors, c.Skipped}
}

func (s *Summary) cucumberTable() string {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(fmt.Sprintf("Cucumber Report (%d features)", s.Cucumber.Features))

	header := table.Row{""}
	for _, status := range statusOrder {
		header = append(header, status)
	}
	header = append(header, "total")
	t.AppendHeader(header)

	t.AppendRow(countsRow("Scenarios", s.Cucumber.Scenarios))
	t.AppendRow(countsRow("Steps", s.Cucumber.Steps))
	t.SetStyle(table.StyleLight)
	t.Render()
	return buf.String()
}

func countsRow(label string, counts StatusCounts) table.Row {
	row := table.Row{label}
	for _, status := range statusOrder {
		row = append(row, counts[status])
	}
	return append(row, counts.Total())
}

// WriteFile writes the rendered summary to dir/SummaryFilename and returns the path
func (s *Summary) WriteFile(dir string) (string, error) {
	path := filepath.Join(dir, SummaryFilename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create summary directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(s.Table()), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return path, nil
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
