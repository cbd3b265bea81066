package application

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahrav/go-eyereport/internal/domain"
)

// rawReport keeps pointers so that missing fields can be told apart from
// empty ones.
type rawReport struct {
	Description          *string `json:"description"`
	Diagnosis            *string `json:"diagnosis"`
	DiagnosisDescription *string `json:"diagnosis_description"`
}

// ParseReport decodes the synthesis output into a typed report. The text
// may be wrapped in a Markdown code fence. Any failure yields an
// ErrorReport carrying text exactly as received; ParseReport never fails.
func ParseReport(text string) domain.ReportResult {
	body := stripCodeFence(strings.TrimSpace(text))

	decoder := json.NewDecoder(strings.NewReader(body))
	var raw rawReport
	if err := decoder.Decode(&raw); err != nil {
		return domain.NewErrorReportResult(fmt.Sprintf("%v: %v", domain.ErrMalformedReport, err), text)
	}
	if decoder.More() {
		return domain.NewErrorReportResult(fmt.Sprintf("%v: trailing data after JSON object", domain.ErrMalformedReport), text)
	}

	var missing []string
	if raw.Description == nil {
		missing = append(missing, "description")
	}
	if raw.Diagnosis == nil {
		missing = append(missing, "diagnosis")
	}
	if len(missing) > 0 {
		return domain.NewErrorReportResult(
			fmt.Sprintf("%v: missing required field(s) %s", domain.ErrMalformedReport, strings.Join(missing, ", ")),
			text,
		)
	}

	return domain.NewReportResult(domain.SynthesizedReport{
		Description:          *raw.Description,
		Diagnosis:            domain.CanonicalDiagnosis(*raw.Diagnosis),
		DiagnosisDescription: raw.DiagnosisDescription,
	})
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		header := strings.TrimSpace(inner[:nl])
		if header == "" || !strings.ContainsAny(header, "{[\"") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
