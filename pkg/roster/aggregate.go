package roster

import "sort"

// gradeSteps are mean-power thresholds, highest first.
var gradeSteps = []struct {
	min   float64
	grade Grade
}{
	{4500, GradeS},
	{3750, GradeA},
	{3000, GradeB},
	{2000, GradeC},
}

// GradeFor maps mean member power to a grade. Zero or negative means the lowest grade.
func GradeFor(mean float64) Grade {
	for _, s := range gradeSteps {
		if mean >= s.min {
			return s.grade
		}
	}
	return GradeD
}

// Aggregate builds the summary from the current entries. It never reads previous
// summaries and does not modify its inputs, so calling it twice gives the same result.
func Aggregate(entries []RosterEntry, pending []PendingSelection) RosterSummary {
	out := make([]RosterEntry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].Level > out[j].Level
	})

	var total, max float64
	for i := range out {
		out[i].IsTopScorer = false
		total += out[i].PowerScore
		if out[i].PowerScore > max {
			max = out[i].PowerScore
		}
	}
	if max > 0 {
		for i := range out {
			out[i].IsTopScorer = out[i].PowerScore == max
		}
	}

	grade := GradeD
	if len(out) > 0 {
		grade = GradeFor(total / float64(len(out)))
	}

	ps := make([]PendingSelection, len(pending))
	for i, p := range pending {
		ps[i] = p.clone()
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].SlotIndex < ps[j].SlotIndex })

	return RosterSummary{
		Entries:           out,
		TotalPower:        total,
		Grade:             grade,
		PendingSelections: ps,
	}
}
