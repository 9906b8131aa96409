package testmethod

// UnassignedTeam is the team given to methods ingested without one.
const UnassignedTeam = "Unassigned"

// IngestResult summarises an ingest call.
type IngestResult struct {
	Accepted     int      `json:"accepted"`
	Annotated    int      `json:"annotated"`
	Repositories []string `json:"repositories"`
	// Replaced counts stored methods removed by a replacing ingest.
	Replaced int64 `json:"replaced,omitempty"`
}
