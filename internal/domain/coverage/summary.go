package coverage

import "strings"

// IsAnnotated reports whether a method carries a non-blank title.
func IsAnnotated(m Method) bool {
	return strings.TrimSpace(m.Title) != ""
}

// Rate returns annotated/total as a percentage, or 0 for an empty scope.
func Rate(annotated, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(annotated) / float64(total) * 100
}

// ComputeSummary counts methods and annotated methods and derives the rate.
func ComputeSummary(methods []Method) Summary {
	annotated := 0
	for _, m := range methods {
		if IsAnnotated(m) {
			annotated++
		}
	}
	return Summary{
		TotalMethods:     len(methods),
		AnnotatedMethods: annotated,
		CoverageRate:     Rate(annotated, len(methods)),
	}
}

// tally is the numeric fold used for every level above a class.
// Rates are always recomputed from the summed counts, never averaged.
type tally struct {
	classes   int
	total     int
	annotated int
}

func (t *tally) addClass(s Summary) {
	t.classes++
	t.total += s.TotalMethods
	t.annotated += s.AnnotatedMethods
}

func (t *tally) addTeam(s TeamSummary) {
	t.classes += s.TotalClasses
	t.total += s.TotalMethods
	t.annotated += s.AnnotatedMethods
}

func (t tally) summary() Summary {
	return Summary{
		TotalMethods:     t.total,
		AnnotatedMethods: t.annotated,
		CoverageRate:     Rate(t.annotated, t.total),
	}
}
