package shared

// AggregateRoot is the consistency boundary a unit of work tracks.
// State changes record events; the unit of work pulls them after commit.
type AggregateRoot interface {
	AggregateID() string

	// Version is the optimistic lock value read from storage.
	Version() int

	PullEvents() []DomainEvent
}
