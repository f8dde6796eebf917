package metrics

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// ErrNoSamples is returned when there is nothing to score.
var ErrNoSamples = errors.New("metrics: no samples to score")

// Accuracy returns the fraction of positions where pred equals truth.
func Accuracy(truth, pred []int) (float64, error) {
	if err := checkLengths(truth, pred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range truth {
		if truth[i] == pred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth)), nil
}

// Row holds per-label (or averaged) scores.
type Row struct {
	Name      string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a per-label precision/recall/F1 breakdown.
type Report struct {
	Labels   []int
	Rows     []Row
	Accuracy float64
	Macro    Row
	Weighted Row
	Support  int
	// Warnings lists every score that was undefined and reported as zero.
	Warnings []string
}

// Classify scores pred against truth for every label that occurs in either.
// Undefined ratios are reported as zero and recorded in Warnings.
func Classify(truth, pred []int) (*Report, error) {
	if err := checkLengths(truth, pred); err != nil {
		return nil, err
	}

	type counts struct{ tp, fp, fn int }
	byLabel := make(map[int]*counts)
	get := func(label int) *counts {
		c := byLabel[label]
		if c == nil {
			c = &counts{}
			byLabel[label] = c
		}
		return c
	}
	correct := 0
	for i, t := range truth {
		p := pred[i]
		if t == p {
			get(t).tp++
			correct++
			continue
		}
		get(t).fn++
		get(p).fp++
	}

	rep := &Report{
		Support:  len(truth),
		Accuracy: float64(correct) / float64(len(truth)),
	}
	for label := range byLabel {
		rep.Labels = append(rep.Labels, label)
	}
	sort.Ints(rep.Labels)

	var sumP, sumR, sumF, wP, wR, wF float64
	for _, label := range rep.Labels {
		c := byLabel[label]
		row := Row{Name: fmt.Sprint(label), Support: c.tp + c.fn}

		if c.tp+c.fp == 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("precision is ill-defined for label %d with no predicted samples; set to 0.0", label))
		} else {
			row.Precision = float64(c.tp) / float64(c.tp+c.fp)
		}
		if row.Support == 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("recall is ill-defined for label %d with no true samples; set to 0.0", label))
		} else {
			row.Recall = float64(c.tp) / float64(row.Support)
		}
		if row.Precision+row.Recall > 0 {
			row.F1 = 2 * row.Precision * row.Recall / (row.Precision + row.Recall)
		}

		rep.Rows = append(rep.Rows, row)
		sumP += row.Precision
		sumR += row.Recall
		sumF += row.F1
		w := float64(row.Support)
		wP += w * row.Precision
		wR += w * row.Recall
		wF += w * row.F1
	}

	k := float64(len(rep.Rows))
	rep.Macro = Row{Name: "macro avg", Precision: sumP / k, Recall: sumR / k, F1: sumF / k, Support: rep.Support}
	total := float64(rep.Support)
	rep.Weighted = Row{Name: "weighted avg", Precision: wP / total, Recall: wR / total, F1: wF / total, Support: rep.Support}
	return rep, nil
}

// Row returns the row for label, if present.
func (r *Report) Row(label int) (Row, bool) {
	for i, l := range r.Labels {
		if l == label {
			return r.Rows[i], true
		}
	}
	return Row{}, false
}

func checkLengths(truth, pred []int) error {
	if len(truth) == 0 {
		return ErrNoSamples
	}
	if len(truth) != len(pred) {
		return errors.Errorf("metrics: %d true labels but %d predictions", len(truth), len(pred))
	}
	return nil
}
