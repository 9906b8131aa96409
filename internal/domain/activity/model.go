package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeMethodsIngested  ActivityType = "methods_ingested"
	TypeRepositoryPurged ActivityType = "repository_purged"
	TypeDatasetRefreshed ActivityType = "dataset_refreshed"
	TypeViewOpened       ActivityType = "view_opened"
	TypeViewClosed       ActivityType = "view_closed"
	TypeSnapshotImported ActivityType = "snapshot_imported"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID             int64        `json:"id"`
	ViewID         *string      `json:"viewId,omitempty"`
	Actor          string       `json:"actor,omitempty"`
	ActivityType   ActivityType `json:"type"`
	Summary        string       `json:"summary"`
	Details        string       `json:"details,omitempty"` // JSON string
	DatasetVersion uint64       `json:"datasetVersion"`
	CreatedAt      time.Time    `json:"createdAt"`
}
