package mcp

import (
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
)

type GetCoverageTreeParams struct {
	Search         string `json:"search,omitempty" jsonschema:"case-insensitive substring matched against method name, class name, repository and title"`
	AnnotationMode string `json:"annotation_mode,omitempty" jsonschema:"all, annotated or not-annotated (default all)"`
	Limit          int    `json:"limit,omitempty" jsonschema:"read at most this many methods straight from the store instead of the loaded dataset"`
}

type RefreshDatasetParams struct{}

type IngestTestMethodsParams struct {
	Methods []coverage.Method `json:"methods" jsonschema:"test methods reported by a repository scan"`
}

type OpenViewParams struct {
	ViewID string `json:"view_id,omitempty" jsonschema:"view to open or restore (defaults to the MCP session ID)"`
}

type ViewParams struct {
	ViewID string `json:"view_id,omitempty" jsonschema:"view ID (defaults to the MCP session ID)"`
}

type SearchViewParams struct {
	ViewID   string `json:"view_id,omitempty" jsonschema:"view ID (defaults to the MCP session ID)"`
	Term     string `json:"term" jsonschema:"search term as typed; an empty term clears the search"`
	ApplyNow bool   `json:"apply_now,omitempty" jsonschema:"apply the term immediately instead of after the debounce delay"`
}

type SetAnnotationModeParams struct {
	ViewID string `json:"view_id,omitempty" jsonschema:"view ID (defaults to the MCP session ID)"`
	Mode   string `json:"mode" jsonschema:"all, annotated or not-annotated"`
}

type ToggleTeamParams struct {
	ViewID   string `json:"view_id,omitempty" jsonschema:"view ID (defaults to the MCP session ID)"`
	TeamName string `json:"team_name" jsonschema:"team to expand or collapse"`
}

type ToggleClassParams struct {
	ViewID     string `json:"view_id,omitempty" jsonschema:"view ID (defaults to the MCP session ID)"`
	TeamName   string `json:"team_name" jsonschema:"team owning the class"`
	Repository string `json:"repository,omitempty" jsonschema:"repository of the class"`
	ClassName  string `json:"class_name" jsonschema:"test class to expand or collapse"`
}

type SetAllExpandedParams struct {
	ViewID   string `json:"view_id,omitempty" jsonschema:"view ID (defaults to the MCP session ID)"`
	Expanded bool   `json:"expanded" jsonschema:"true expands every visible team and class, false collapses all"`
}

type GetRecentActivityParams struct {
	ViewID string `json:"view_id,omitempty" jsonschema:"only entries of this view"`
	Type   string `json:"type,omitempty" jsonschema:"only entries of this activity type"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of entries (default 50)"`
	Offset int    `json:"offset,omitempty" jsonschema:"offset for pagination"`
}

type ToggleResult struct {
	Key      string `json:"key"`
	Expanded bool   `json:"expanded"`
}

type AnnotationModeResult struct {
	ViewID string                  `json:"view_id"`
	Mode   coverage.AnnotationMode `json:"mode"`
}

type CloseViewResult struct {
	ViewID string `json:"view_id"`
	Closed bool   `json:"closed"`
}
