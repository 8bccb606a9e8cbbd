package uat

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ResultFormatter is responsible for formatting and displaying step results.
type ResultFormatter interface {
	FormatResults(run *StepRun) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter writing to out, or stdout if nil.
func NewConsoleResultFormatter(logger log.Logger, out io.Writer) *ConsoleResultFormatter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleResultFormatter{
		logger: logger,
		out:    out,
	}
}

// FormatResults prints a result table, the artifacts of every sub-step and the report summaries.
func (f *ConsoleResultFormatter) FormatResults(run *StepRun) error {
	if run == nil {
		return fmt.Errorf("no step run to format")
	}
	f.logger.Info("Printing results...")

	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("User Acceptance Test Results: %s (%s)", run.StepName, formatDuration(run.Duration)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Environment", "Duration", "Status", "Details",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Details", WidthMax: 100, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, result := range run.Results {
		t.AppendRow(table.Row{
			"Sub-step",
			fmt.Sprintf("%s (%s)", result.SubStepName, result.SubStepImplementerName),
			result.Environment,
			formatDuration(result.Duration),
			getResultString(result.Status()),
			result.Message,
		})

		for i, artifact := range result.Artifacts {
			prefix := "├──"
			if i == len(result.Artifacts)-1 {
				prefix = "└──"
			}
			t.AppendRow(table.Row{
				"Artifact",
				fmt.Sprintf("%s %s", prefix, artifact.Name),
				"",
				"",
				"",
				artifact.Value,
			})
		}
		t.AppendSeparator()
	}

	failed := run.Failed()
	if failed == nil {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	status := "✓ pass"
	if failed != nil {
		status = "✗ fail"
	}
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d sub-steps", len(run.Results)),
		"",
		formatDuration(run.Duration),
		status,
		run.RunID,
	})
	t.Render()

	for _, result := range run.Results {
		if result.Summary != "" {
			fmt.Fprintln(f.out)
			fmt.Fprint(f.out, result.Summary)
		}
	}
	return nil
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
