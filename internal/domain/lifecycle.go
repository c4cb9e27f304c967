package domain

// Lifecycle is the archival state carried by courses and class sessions.
// Archival is a first-class transition; archived rows are reported as
// ErrNotFound by the workflow services.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleArchived Lifecycle = "archived"
)
