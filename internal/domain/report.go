package domain

import (
	"encoding/json"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Diagnosis is the enumerated verdict of a synthesized report.
type Diagnosis string

const (
	DiagnosisNormal       Diagnosis = "normal"
	DiagnosisAbnormal     Diagnosis = "abnormal"
	DiagnosisNonAvailable Diagnosis = "non_available"
)

var knownDiagnoses = []Diagnosis{DiagnosisNormal, DiagnosisAbnormal, DiagnosisNonAvailable}

// maxDiagnosisEdits is the largest edit distance accepted when mapping a
// model-produced value onto a known tag. "normal" and "abnormal" are two
// edits apart, so this must stay below two.
const maxDiagnosisEdits = 1

// IsKnown reports whether d is one of the three enumerated tags.
func (d Diagnosis) IsKnown() bool {
	for _, k := range knownDiagnoses {
		if d == k {
			return true
		}
	}
	return false
}

// CanonicalDiagnosis maps raw model output onto a known tag when it is a
// case, spacing or single-typo variant of one ("Normal", "non-available",
// "abnormall"). Anything else, including a near match that is equally
// close to two tags, is returned verbatim so unrecognized values pass
// through as text.
func CanonicalDiagnosis(raw string) Diagnosis {
	folded := strings.ToLower(strings.TrimSpace(raw))
	folded = strings.NewReplacer("-", "_", " ", "_").Replace(folded)

	for _, k := range knownDiagnoses {
		if folded == string(k) {
			return k
		}
	}
	// A near match counts only when one tag is strictly closest; "anormal"
	// is one edit from both normal and abnormal and stays verbatim.
	var best Diagnosis
	bestDist, ties := maxDiagnosisEdits+1, 0
	for _, k := range knownDiagnoses {
		switch d := levenshtein.ComputeDistance(folded, string(k)); {
		case d < bestDist:
			best, bestDist, ties = k, d, 1
		case d == bestDist && ties > 0:
			ties++
		}
	}
	if ties == 1 {
		return best
	}
	return Diagnosis(raw)
}

// SynthesizedReport is the typed report produced for one eye.
type SynthesizedReport struct {
	Description string    `json:"description"`
	Diagnosis   Diagnosis `json:"diagnosis"`
	// DiagnosisDescription carries the diagnostic hypothesis and is only
	// present when the model supplied one.
	DiagnosisDescription *string `json:"diagnosis_description,omitempty"`
}

// ErrorReport replaces a SynthesizedReport when the model output could not
// be parsed. RawResponse is the model text exactly as received.
type ErrorReport struct {
	Error       string `json:"error"`
	RawResponse string `json:"raw_response"`
}

// ReportResult holds exactly one of Report or ErrorReport.
type ReportResult struct {
	Report      *SynthesizedReport
	ErrorReport *ErrorReport
}

// NewReportResult wraps a parsed report.
func NewReportResult(r SynthesizedReport) ReportResult { return ReportResult{Report: &r} }

// NewErrorReportResult wraps a parse failure.
func NewErrorReportResult(reason, raw string) ReportResult {
	return ReportResult{ErrorReport: &ErrorReport{Error: reason, RawResponse: raw}}
}

// IsError reports whether the result is the ErrorReport variant.
func (r ReportResult) IsError() bool { return r.ErrorReport != nil }

// MarshalJSON encodes whichever variant is set, flattened.
func (r ReportResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.ErrorReport != nil:
		return json.Marshal(r.ErrorReport)
	case r.Report != nil:
		return json.Marshal(r.Report)
	default:
		return []byte("null"), nil
	}
}
