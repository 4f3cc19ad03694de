package es

// Projection consumes persisted events to build read models / indexes.
type Projection interface {
	Name() string
	Handler
}
