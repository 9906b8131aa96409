package coverage

import "slices"

// Recompute applies pred to every method of raw and rebuilds the tree
// bottom-up: classes left without methods and teams left without classes
// are pruned, and every summary is derived from the surviving methods.
//
// A nil raw tree means the data has not been loaded yet; Recompute returns
// nil in that case. A nil pred keeps every method.
//
// raw is never modified. Every node of the result is newly allocated, so a
// caller holding an older result never sees it change.
func Recompute(raw *Tree, pred Predicate) *Tree {
	if raw == nil {
		return nil
	}

	out := &Tree{Teams: make([]TeamGroup, 0, len(raw.Teams))}
	var root tally
	for i := range raw.Teams {
		team, ok := recomputeTeam(&raw.Teams[i], pred)
		if !ok {
			continue
		}
		root.addTeam(team.Summary)
		out.Teams = append(out.Teams, team)
	}

	sum := root.summary()
	out.Summary = RootSummary{
		TotalTeams:            len(out.Teams),
		TotalClasses:          root.classes,
		TotalMethods:          sum.TotalMethods,
		TotalAnnotatedMethods: sum.AnnotatedMethods,
		OverallCoverageRate:   sum.CoverageRate,
	}
	return out
}

func recomputeTeam(src *TeamGroup, pred Predicate) (TeamGroup, bool) {
	classes := make([]ClassGroup, 0, len(src.Classes))
	var t tally
	for i := range src.Classes {
		class, ok := recomputeClass(&src.Classes[i], pred)
		if !ok {
			continue
		}
		t.addClass(class.Summary)
		classes = append(classes, class)
	}
	if len(classes) == 0 {
		return TeamGroup{}, false
	}
	return TeamGroup{
		TeamName: src.TeamName,
		TeamCode: src.TeamCode,
		Classes:  classes,
		Summary:  TeamSummary{TotalClasses: t.classes, Summary: t.summary()},
	}, true
}

func recomputeClass(src *ClassGroup, pred Predicate) (ClassGroup, bool) {
	var methods []Method
	for _, m := range src.Methods {
		if pred != nil && !pred(m) {
			continue
		}
		m.Tags = slices.Clone(m.Tags)
		methods = append(methods, m)
	}
	if len(methods) == 0 {
		return ClassGroup{}, false
	}
	return ClassGroup{
		ClassName:   src.ClassName,
		PackageName: src.PackageName,
		Repository:  src.Repository,
		Methods:     methods,
		Summary:     ComputeSummary(methods),
	}, true
}

// Group builds a tree from flat method rows. Teams are keyed by name and
// code, classes by repository and class name; both keep the order in
// which they first appear in methods. Summaries are derived by Recompute.
func Group(methods []Method) *Tree {
	type classRef struct{ team, class int }

	raw := &Tree{Teams: []TeamGroup{}}
	teamIdx := make(map[[2]string]int)
	classIdx := make(map[[3]string]classRef)

	for _, m := range methods {
		tk := [2]string{m.TeamName, m.TeamCode}
		ti, ok := teamIdx[tk]
		if !ok {
			ti = len(raw.Teams)
			teamIdx[tk] = ti
			raw.Teams = append(raw.Teams, TeamGroup{TeamName: m.TeamName, TeamCode: m.TeamCode})
		}

		ck := [3]string{m.TeamName + "\x00" + m.TeamCode, m.Repository, m.TestClass}
		ref, ok := classIdx[ck]
		if !ok {
			ref = classRef{team: ti, class: len(raw.Teams[ti].Classes)}
			classIdx[ck] = ref
			raw.Teams[ti].Classes = append(raw.Teams[ti].Classes, ClassGroup{
				ClassName:   m.TestClass,
				PackageName: m.PackageName,
				Repository:  m.Repository,
			})
		}
		class := &raw.Teams[ref.team].Classes[ref.class]
		class.Methods = append(class.Methods, m)
	}

	return Recompute(raw, nil)
}
