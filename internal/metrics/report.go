package metrics

import (
	"fmt"
	"io"
	"strings"
)

var reportHeaders = [...]string{"precision", "recall", "f1-score", "support"}

// Format renders the report as a fixed-width table with digits decimals.
func (r *Report) Format(digits int) string {
	width := len(r.Weighted.Name)
	for _, row := range r.Rows {
		if len(row.Name) > width {
			width = len(row.Name)
		}
	}
	if digits > width {
		width = digits
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s ", width, "")
	for _, h := range reportHeaders {
		fmt.Fprintf(&b, " %9s", h)
	}
	b.WriteString("\n\n")

	writeRow := func(row Row) {
		fmt.Fprintf(&b, "%*s  %9.*f %9.*f %9.*f %9d\n",
			width, row.Name, digits, row.Precision, digits, row.Recall, digits, row.F1, row.Support)
	}
	for _, row := range r.Rows {
		writeRow(row)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.*f %9d\n", width, "accuracy", "", "", digits, r.Accuracy, r.Support)
	writeRow(r.Macro)
	writeRow(r.Weighted)
	return b.String()
}

// WriteSummary prints the accuracy sentence followed by the report table.
func (r *Report) WriteSummary(w io.Writer) error {
	_, err := fmt.Fprintf(w, "\nThe model correctly predicted digits with %s%% accuracy\n%s",
		formatPercent(r.Accuracy), r.Format(2))
	return err
}

// formatPercent renders a fraction as a percentage rounded to two decimals,
// without trailing zeros.
func formatPercent(fraction float64) string {
	s := fmt.Sprintf("%.2f", fraction*100)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}
