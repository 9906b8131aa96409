package testmethod

// ListOptions provides filtering options for listing test methods.
// Results come back in first-ingestion order.
type ListOptions struct {
	TeamName   string
	Repository string
	Limit      int
	Offset     int
}
