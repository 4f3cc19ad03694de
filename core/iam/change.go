package iam

import (
	"bytes"
	"encoding/json"
)

// Change is one field of an update diff. The zero value means "not provided"
// and is omitted from JSON when tagged omitzero; JSON null clears the field.
type Change[T any] struct {
	set   bool
	value *T
}

func Set[T any](v T) Change[T] { return Change[T]{set: true, value: &v} }
func Clear[T any]() Change[T]  { return Change[T]{set: true} }

// SetPtr sets the field to *v, or clears it when v is nil.
func SetPtr[T any](v *T) Change[T] {
	if v == nil {
		return Clear[T]()
	}
	return Set(*v)
}

func (c Change[T]) IsZero() bool { return !c.set }
func (c Change[T]) IsSet() bool  { return c.set }

// Value returns the new value; ok is false when the change clears the field.
func (c Change[T]) Value() (v T, ok bool) {
	if c.value == nil {
		return v, false
	}
	return *c.value, true
}

// Ptr returns the new value, nil meaning cleared.
func (c Change[T]) Ptr() *T {
	if c.value == nil {
		return nil
	}
	v := *c.value
	return &v
}

// ApplyTo overwrites *dst when the change is set.
func (c Change[T]) ApplyTo(dst **T) {
	if c.set {
		*dst = c.Ptr()
	}
}

func (c Change[T]) MarshalJSON() ([]byte, error) {
	if c.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*c.value)
}

func (c *Change[T]) UnmarshalJSON(data []byte) error {
	c.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		c.value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.value = &v
	return nil
}

// PtrEqual compares optional values.
func PtrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Diff is the change taking cur to next; it is zero when both are equal.
func Diff[T comparable](cur, next *T) Change[T] {
	if PtrEqual(cur, next) {
		return Change[T]{}
	}
	return SetPtr(next)
}
