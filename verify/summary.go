package verify

import (
	"fmt"
	"strings"
	"time"
)

// Summary totals a batch.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Errored int
	Elapsed time.Duration
	Results []BatchResult
}

// Summarize counts the outcomes of a batch that took elapsed wall time.
func Summarize(results []BatchResult, elapsed time.Duration) Summary {
	s := Summary{Total: len(results), Elapsed: elapsed, Results: results}
	for _, r := range results {
		switch {
		case r.Err != nil || r.Report == nil:
			s.Errored++
		case r.Report.Passed:
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

// Rate returns verifications per second.
func (s Summary) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Total) / s.Elapsed.Seconds()
}

func (s Summary) String() string {
	return fmt.Sprintf("%d/%d passed, %d failed, %d errors in %v (%.2f/s)",
		s.Passed, s.Total, s.Failed, s.Errored, s.Elapsed.Round(time.Millisecond), s.Rate())
}

// Markdown renders one row per instance followed by the totals.
func (s Summary) Markdown() string {
	var sb strings.Builder
	sb.WriteString("| Instance | Result | Ground rules | States | Duration | Detail |\n")
	sb.WriteString("|----------|--------|--------------|--------|----------|--------|\n")
	for _, r := range s.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(&sb, "| %s | ⚠️ ERROR | | | | %s |\n", r.Instance, escapeCell(r.Err.Error()))
		case r.Report == nil:
			fmt.Fprintf(&sb, "| %s | ⚠️ ERROR | | | | not checked |\n", r.Instance)
		default:
			result := "✅ PASS"
			if !r.Report.Passed {
				result = "❌ FAIL"
			}
			fmt.Fprintf(&sb, "| %s | %s | %d | %d | %v | %s |\n",
				r.Instance, result, r.Report.GroundRules, r.Report.States,
				r.Report.Duration.Round(time.Microsecond), escapeCell(r.Report.Reason))
		}
	}
	fmt.Fprintf(&sb, "\n**%s**\n", s)
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
