package coverage

// Method is a single test-method fact as reported by a repository scan.
// Optional fields are empty strings when the scanner did not provide them.
type Method struct {
	ID           int64    `json:"id,omitempty"`
	Repository   string   `json:"repository,omitempty"`
	PackageName  string   `json:"packageName,omitempty"`
	TestClass    string   `json:"testClass"`
	TestMethod   string   `json:"testMethod"`
	Title        string   `json:"title,omitempty"`
	Author       string   `json:"author,omitempty"`
	Status       string   `json:"status,omitempty"`
	TargetClass  string   `json:"targetClass,omitempty"`
	TargetMethod string   `json:"targetMethod,omitempty"`
	Line         int      `json:"line,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	TeamName     string   `json:"teamName,omitempty"`
	TeamCode     string   `json:"teamCode,omitempty"`
}

// Summary holds method counts and the derived coverage rate for one scope.
type Summary struct {
	TotalMethods     int     `json:"totalMethods"`
	AnnotatedMethods int     `json:"annotatedMethods"`
	CoverageRate     float64 `json:"coverageRate"`
}

// TeamSummary is the Summary of a team plus its surviving class count.
type TeamSummary struct {
	TotalClasses int `json:"totalClasses"`
	Summary
}

// ClassGroup holds the methods of one test class.
type ClassGroup struct {
	ClassName   string   `json:"className"`
	PackageName string   `json:"packageName,omitempty"`
	Repository  string   `json:"repository,omitempty"`
	Methods     []Method `json:"methods"`
	Summary     Summary  `json:"summary"`
}

// TeamGroup holds the classes owned by one team.
type TeamGroup struct {
	TeamName string       `json:"teamName"`
	TeamCode string       `json:"teamCode,omitempty"`
	Classes  []ClassGroup `json:"classes"`
	Summary  TeamSummary  `json:"summary"`
}

// RootSummary aggregates every team in a tree.
type RootSummary struct {
	TotalTeams            int     `json:"totalTeams"`
	TotalClasses          int     `json:"totalClasses"`
	TotalMethods          int     `json:"totalMethods"`
	TotalAnnotatedMethods int     `json:"totalAnnotatedMethods"`
	OverallCoverageRate   float64 `json:"overallCoverageRate"`
}

// Tree is the grouped Team → Class → Method document.
type Tree struct {
	Teams   []TeamGroup `json:"teams"`
	Summary RootSummary `json:"summary"`
}

// MethodCount returns the number of methods across the whole tree.
func (t *Tree) MethodCount() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, team := range t.Teams {
		for _, class := range team.Classes {
			n += len(class.Methods)
		}
	}
	return n
}
