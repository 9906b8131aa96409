// Package expansion tracks which team and class nodes of a coverage tree
// are expanded. Keys are derived from node identity, not position, so the
// state survives any re-filtering of the tree.
package expansion

import (
	"slices"
	"sync"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
)

// TeamKey returns the expansion key of a team node.
func TeamKey(teamName string) string {
	return teamName
}

// ClassKey returns the expansion key of a class node.
func ClassKey(teamName, repository, className string) string {
	return teamName + "." + repository + "." + className
}

// Keys is a sorted snapshot of the expanded keys.
type Keys struct {
	Teams   []string `json:"teams"`
	Classes []string `json:"classes"`
}

// Store holds two independent sets of expanded keys. Membership means
// expanded; everything starts collapsed. Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	teams   map[string]struct{}
	classes map[string]struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		teams:   make(map[string]struct{}),
		classes: make(map[string]struct{}),
	}
}

// ToggleTeam flips the team key and returns whether it is now expanded.
func (s *Store) ToggleTeam(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toggle(s.teams, key)
}

// ToggleClass flips the class key and returns whether it is now expanded.
func (s *Store) ToggleClass(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toggle(s.classes, key)
}

// IsTeamExpanded reports whether the team key is expanded.
func (s *Store) IsTeamExpanded(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.teams[key]
	return ok
}

// IsClassExpanded reports whether the class key is expanded.
func (s *Store) IsClassExpanded(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.classes[key]
	return ok
}

// ExpandAll marks every team and class of tree as expanded. Keys already
// present for nodes outside tree are kept.
func (s *Store) ExpandAll(tree *coverage.Tree) {
	if tree == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, team := range tree.Teams {
		s.teams[TeamKey(team.TeamName)] = struct{}{}
		for _, class := range team.Classes {
			s.classes[ClassKey(team.TeamName, class.Repository, class.ClassName)] = struct{}{}
		}
	}
}

// CollapseAll empties both sets.
func (s *Store) CollapseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.teams)
	clear(s.classes)
}

// Keys returns a sorted snapshot of both sets.
func (s *Store) Keys() Keys {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Keys{
		Teams:   sortedKeys(s.teams),
		Classes: sortedKeys(s.classes),
	}
}

// Restore replaces both sets with k.
func (s *Store) Restore(k Keys) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.teams)
	clear(s.classes)
	for _, key := range k.Teams {
		s.teams[key] = struct{}{}
	}
	for _, key := range k.Classes {
		s.classes[key] = struct{}{}
	}
}

func toggle(set map[string]struct{}, key string) bool {
	if _, ok := set[key]; ok {
		delete(set, key)
		return false
	}
	set[key] = struct{}{}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
