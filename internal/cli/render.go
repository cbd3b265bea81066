package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/go-eyereport/internal/application"
	"github.com/ahrav/go-eyereport/internal/domain"
)

var title = cases.Title(language.English)

func renderJSON(w io.Writer, result *application.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	out := struct {
		*application.RunResult
		Degraded    bool              `json:"degraded"`
		CostSummary map[string]string `json:"cost_summary"`
	}{result, result.Degraded(), result.CostSummary()}
	return enc.Encode(out)
}

func renderText(w io.Writer, result *application.RunResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", result.RunID, result.ExamType)

	renderEye(&b, domain.EyeRight, "OD", result.Right)
	renderEye(&b, domain.EyeLeft, "OS", result.Left)

	summary := result.CostSummary()
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fmt.Fprintf(&b, "\nCost over %d calls:\n", result.Cost.Calls)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-28s %s\n", k, summary[k])
	}
	if n := result.Cost.EstimatedCalls; n > 0 {
		fmt.Fprintf(&b, "  note: %d of %d calls reported no token usage; their cost is estimated\n", n, result.Cost.Calls)
	}
	if result.Degraded() {
		b.WriteString("\nWarning: run is degraded, see failures above.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderEye(b *strings.Builder, side domain.EyeSide, abbrev string, eye application.EyeResult) {
	fmt.Fprintf(b, "\n== %s Eye (%s) ==\n", title.String(side.String()), abbrev)

	failed := eye.Descriptions.Failed()
	fmt.Fprintf(b, "Images: %d", eye.Descriptions.Len())
	if len(failed) > 0 {
		fmt.Fprintf(b, " (%d failed)", len(failed))
	}
	b.WriteString("\n")
	for _, e := range failed {
		fmt.Fprintf(b, "  [%d] %s: %v\n", e.Index+1, e.Filename, e.Err)
	}

	switch {
	case eye.Report.Failed():
		fmt.Fprintf(b, "Report failed: %v\n", eye.Report.Err)
	case eye.Report.Result.IsError():
		fmt.Fprintf(b, "Report could not be parsed: %s\n", eye.Report.Result.ErrorReport.Error)
		fmt.Fprintf(b, "Raw response:\n%s\n", indent(eye.Report.Result.ErrorReport.RawResponse))
	case eye.Report.Result.Report != nil:
		r := eye.Report.Result.Report
		fmt.Fprintf(b, "Diagnosis: %s\n", diagnosisLabel(r.Diagnosis))
		if r.DiagnosisDescription != nil && *r.DiagnosisDescription != "" {
			fmt.Fprintf(b, "Hypothesis: %s\n", *r.DiagnosisDescription)
		}
		fmt.Fprintf(b, "Description:\n%s\n", indent(r.Description))
	}
}

// diagnosisLabel renders known tags as words ("non_available" becomes
// "Non Available") and leaves free text untouched.
func diagnosisLabel(d domain.Diagnosis) string {
	if !d.IsKnown() {
		return string(d)
	}
	return title.String(strings.ReplaceAll(string(d), "_", " "))
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
