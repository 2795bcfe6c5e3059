package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/thomasrohde/mashd/pkg/evaluator"
)

var flagText bool

var traceCmd = &cobra.Command{
	Use:   "trace <trace.ndjson>",
	Short: "Summarize a trace file written by 'run --trace'",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		summary, err := computeTraceSummary(f)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if flagText {
			printTraceSummaryText(w, summary)
			return nil
		}
		b, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
		return nil
	},
}

func init() {
	traceCmd.Flags().BoolVar(&flagText, "text", false, "print a human readable summary instead of JSON")
}

type TraceSummary struct {
	RunID         string         `json:"runId"`
	TotalEvents   int            `json:"totalEvents"`
	DatasetLoads  int            `json:"datasetLoads"`
	RowsLoaded    int            `json:"rowsLoaded"`
	RowsBySource  map[string]int `json:"rowsBySource"`
	Joins         int            `json:"joins"`
	Unions        int            `json:"unions"`
	FunctionCalls int            `json:"functionCalls"`
	Warnings      []string       `json:"warnings,omitempty"`
	StartTime     string         `json:"startTime,omitempty"`
	EndTime       string         `json:"endTime,omitempty"`
	DurationMs    float64        `json:"durationMs"`
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		RowsBySource: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.Timestamp
		case evaluator.TraceDatasetLoadEnd:
			summary.DatasetLoads++
			rows := intData(event.Data, "rows")
			summary.RowsLoaded += rows
			if src, ok := event.Data["source"].(string); ok {
				summary.RowsBySource[src] += rows
			}
		case evaluator.TraceJoinEnd:
			summary.Joins++
		case evaluator.TraceUnionEnd:
			summary.Unions++
		case evaluator.TraceFnCallStart:
			summary.FunctionCalls++
		case evaluator.TraceWarning:
			if msg, ok := event.Data["message"].(string); ok {
				summary.Warnings = append(summary.Warnings, msg)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Milliseconds())
		}
	}

	return summary, nil
}

// intData reads a count from decoded JSON, where numbers are float64.
func intData(data map[string]any, key string) int {
	switch n := data[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

var labelStyle = lipgloss.NewStyle().Bold(true)

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	line := func(label, format string, args ...any) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), fmt.Sprintf(format, args...))
	}
	line("Run", "%s", s.RunID)
	line("Events", "%d", s.TotalEvents)
	line("Datasets", "%d loaded, %d rows", s.DatasetLoads, s.RowsLoaded)

	sources := make([]string, 0, len(s.RowsBySource))
	for src := range s.RowsBySource {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		fmt.Fprintf(w, "  %s: %d\n", src, s.RowsBySource[src])
	}

	line("Combinations", "%d joins, %d unions", s.Joins, s.Unions)
	line("Function calls", "%d", s.FunctionCalls)
	for _, msg := range s.Warnings {
		line("Warning", "%s", msg)
	}
	if s.DurationMs > 0 {
		line("Duration", "%.0fms", s.DurationMs)
	}
}
