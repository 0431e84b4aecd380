package census

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SurveyNote is shown under the metric list.
const SurveyNote = "Data based on the 2022 ACS 5-year Survey"

// MetricInfo describes one selectable metric column.
type MetricInfo struct {
	Column      string `json:"column"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var (
	upper = cases.Upper(language.English)
	lower = cases.Lower(language.English)
)

// Label turns a column name into a sentence-case label:
// "percentage_no_vehicle" becomes "Percentage no vehicle".
func Label(column string) string {
	s := strings.TrimSpace(strings.ReplaceAll(column, "_", " "))
	if s == "" {
		return s
	}
	_, n := utf8.DecodeRuneInString(s)
	return upper.String(s[:n]) + lower.String(s[n:])
}

// Catalogue describes every metric. overrides maps a column to a
// hand-written description.
func Catalogue(metrics []string, overrides map[string]string) []MetricInfo {
	out := make([]MetricInfo, len(metrics))
	for i, m := range metrics {
		desc := Label(m)
		if o := strings.TrimSpace(overrides[m]); o != "" {
			desc = o
		}
		out[i] = MetricInfo{Column: m, Label: Label(m), Description: m + ": " + desc}
	}
	return out
}
