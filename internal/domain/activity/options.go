package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	ViewID       *string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
