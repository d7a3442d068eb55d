package verify

import (
	"fmt"
	"strings"
	"time"
)

// LawResult is the verdict of one law.
type LawResult struct {
	Law      string        `json:"law"`
	Logic    string        `json:"logic"`
	Formula  string        `json:"formula"`
	Expect   bool          `json:"expect"`
	Got      bool          `json:"got"`
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"duration"`
}

// Report describes one verification.
type Report struct {
	Instance    string        `json:"instance"`
	States      int           `json:"states"`
	Rules       int           `json:"rules"`
	GroundRules int           `json:"ground_rules"`
	Passed      bool          `json:"passed"`
	Reason      string        `json:"reason,omitempty"`
	Laws        []LawResult   `json:"laws,omitempty"`
	Started     time.Time     `json:"started"`
	Duration    time.Duration `json:"duration"`
}

// Failed returns the law that failed, if any.
func (r *Report) Failed() (LawResult, bool) {
	for _, l := range r.Laws {
		if !l.Passed {
			return l, true
		}
	}
	return LawResult{}, false
}

func (r *Report) String() string {
	verdict := "PASS"
	if !r.Passed {
		verdict = "FAIL: " + r.Reason
	}
	return fmt.Sprintf("%s: %d rules, %d grounded, %d states: %s", r.Instance, r.Rules, r.GroundRules, r.States, verdict)
}

// Markdown renders the law verdicts as a table.
func (r *Report) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", r.String())
	if len(r.Laws) == 0 {
		return sb.String()
	}
	sb.WriteString("| Law | Logic | Formula | Expected | Result |\n")
	sb.WriteString("|-----|-------|---------|----------|--------|\n")
	for _, l := range r.Laws {
		result := "✅ PASS"
		if !l.Passed {
			result = fmt.Sprintf("❌ FAIL (got %t)", l.Got)
		}
		fmt.Fprintf(&sb, "| %s | %s | `%s` | %t | %s |\n", l.Law, l.Logic, l.Formula, l.Expect, result)
	}
	return sb.String()
}
