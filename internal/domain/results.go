package domain

import "encoding/json"

// AnalysisResult is the outcome of describing one uploaded image.
// A failed task keeps its slot with Err set and an empty Description, so
// failures stay visible downstream instead of silently shrinking the set.
type AnalysisResult struct {
	Side EyeSide
	// Index is the image's position in its eye's upload order.
	Index       int
	Filename    string
	Description string
	Cost        CostBreakdown
	Err         error
}

// Failed reports whether the analysis task failed.
func (r AnalysisResult) Failed() bool { return r.Err != nil }

// MarshalJSON renders Err as a string.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Side        EyeSide       `json:"side"`
		Index       int           `json:"index"`
		Filename    string        `json:"filename"`
		Description string        `json:"description,omitempty"`
		Cost        CostBreakdown `json:"cost"`
		Error       string        `json:"error,omitempty"`
	}{
		Side:        r.Side,
		Index:       r.Index,
		Filename:    r.Filename,
		Description: r.Description,
		Cost:        r.Cost,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// DescriptionSet is the ordered sequence of analysis results for one eye,
// in upload order.
type DescriptionSet struct {
	Side    EyeSide          `json:"side"`
	Entries []AnalysisResult `json:"entries"`
}

// Texts returns the successful descriptions in set order. This is what
// the synthesis call consumes.
func (s DescriptionSet) Texts() []string {
	texts := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		if !e.Failed() {
			texts = append(texts, e.Description)
		}
	}
	return texts
}

// Failed returns the entries whose analysis failed.
func (s DescriptionSet) Failed() []AnalysisResult {
	var failed []AnalysisResult
	for _, e := range s.Entries {
		if e.Failed() {
			failed = append(failed, e)
		}
	}
	return failed
}

// Len returns the number of entries, failed ones included.
func (s DescriptionSet) Len() int { return len(s.Entries) }

// EyeReport is the synthesis outcome for one eye. When Err is set the
// synthesis call itself failed and Result is empty; a parse failure is
// not an error here, it shows up as Result.ErrorReport.
type EyeReport struct {
	Side   EyeSide
	Result ReportResult
	Cost   CostBreakdown
	Err    error
}

// Failed reports whether the synthesis task failed.
func (r EyeReport) Failed() bool { return r.Err != nil }

// MarshalJSON renders Err as a string.
func (r EyeReport) MarshalJSON() ([]byte, error) {
	out := struct {
		Side   EyeSide       `json:"side"`
		Report *ReportResult `json:"report,omitempty"`
		Cost   CostBreakdown `json:"cost"`
		Error  string        `json:"error,omitempty"`
	}{Side: r.Side, Cost: r.Cost}
	if r.Err != nil {
		out.Error = r.Err.Error()
	} else {
		out.Report = &r.Result
	}
	return json.Marshal(out)
}
