package coverage

import (
	"strings"
)

// AnnotationMode selects methods by annotation state.
type AnnotationMode string

const (
	ModeAll          AnnotationMode = "all"
	ModeAnnotated    AnnotationMode = "annotated"
	ModeNotAnnotated AnnotationMode = "not-annotated"
)

// ParseAnnotationMode validates a user-supplied mode. The empty string means ModeAll.
func ParseAnnotationMode(s string) (AnnotationMode, error) {
	switch AnnotationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeAnnotated:
		return ModeAnnotated, nil
	case ModeNotAnnotated:
		return ModeNotAnnotated, nil
	default:
		return "", ErrInvalidAnnotationMode
	}
}

// Predicate decides whether a method survives filtering.
type Predicate func(Method) bool

// BuildPredicate combines a case-insensitive substring search with an
// annotation mode. An empty search term matches every method.
func BuildPredicate(search string, mode AnnotationMode) Predicate {
	needle := strings.ToLower(search)
	return func(m Method) bool {
		return matchesSearch(m, needle) && matchesMode(m, mode)
	}
}

func matchesSearch(m Method, needle string) bool {
	if needle == "" {
		return true
	}
	for _, field := range [...]string{m.TestMethod, m.TestClass, m.Repository, m.Title} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func matchesMode(m Method, mode AnnotationMode) bool {
	switch mode {
	case ModeAnnotated:
		return IsAnnotated(m)
	case ModeNotAnnotated:
		return !IsAnnotated(m)
	default:
		return true
	}
}

// Filter carries the inputs of a predicate so that it can be keyed and compared.
type Filter struct {
	Search string         `json:"search,omitempty"`
	Mode   AnnotationMode `json:"annotationMode,omitempty"`
}

// Normalize maps the zero mode to ModeAll.
func (f Filter) Normalize() Filter {
	if f.Mode == "" {
		f.Mode = ModeAll
	}
	return f
}

// Key identifies the predicate built from f. Filters with equal keys
// select exactly the same methods.
func (f Filter) Key() string {
	f = f.Normalize()
	return string(f.Mode) + "\x00" + strings.ToLower(f.Search)
}

// IsZero reports whether f accepts every method.
func (f Filter) IsZero() bool {
	f = f.Normalize()
	return f.Search == "" && f.Mode == ModeAll
}

// Predicate builds the method predicate for f.
func (f Filter) Predicate() Predicate {
	f = f.Normalize()
	return BuildPredicate(f.Search, f.Mode)
}
