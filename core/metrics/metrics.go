// Package metrics provides the abstract metric types used by the core
// packages so the instrumentation backend stays pluggable.
package metrics

// Timer measures the duration of an operation. Call ObserveDuration when
// the operation completes to record the elapsed time.
type Timer interface {
	ObserveDuration()
}
