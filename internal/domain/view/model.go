package view

import (
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
)

// Info describes an open view.
type Info struct {
	ID           string    `json:"id"`
	OpenedAt     time.Time `json:"openedAt"`
	LastActivity time.Time `json:"lastActivity"`
	Restored     bool      `json:"restored"`
}

// OpenRequest describes a view open request. An empty ID opens a new view
// with a generated ID; a known ID restores its persisted expansion state.
type OpenRequest struct {
	ID string
}

// Render is everything a client needs to draw a view.
type Render struct {
	ViewID            string                  `json:"viewId"`
	Loaded            bool                    `json:"loaded"`
	DatasetVersion    uint64                  `json:"datasetVersion"`
	Tree              *coverage.Tree          `json:"tree"`
	NoMatches         bool                    `json:"noMatches"`
	SearchTerm        string                  `json:"searchTerm"`
	AppliedSearchTerm string                  `json:"appliedSearchTerm"`
	IsSearching       bool                    `json:"isSearching"`
	AnnotationMode    coverage.AnnotationMode `json:"annotationMode"`
	ExpandedTeams     []string                `json:"expandedTeams"`
	ExpandedClasses   []string                `json:"expandedClasses"`
}
