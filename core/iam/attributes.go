package iam

import (
	"maps"
	"strings"
)

// CustomAttributes are free-form key/value pairs; keys are identifiers.
type CustomAttributes map[string]string

// CustomAttributeChanges is the attribute part of an update diff. A nil
// value removes the key.
type CustomAttributeChanges map[string]*string

func (c CustomAttributes) Clone() CustomAttributes {
	out := CustomAttributes{}
	maps.Copy(out, c)
	return out
}

// Apply folds changes into c.
func (c CustomAttributes) Apply(changes CustomAttributeChanges) {
	for k, v := range changes {
		if v == nil {
			delete(c, k)
		} else {
			c[k] = *v
		}
	}
}

// AttributeEditor records attribute changes against the current attributes,
// keeping only effective ones.
type AttributeEditor struct {
	current CustomAttributes
	changes CustomAttributeChanges
}

func NewAttributeEditor(current CustomAttributes) AttributeEditor {
	return AttributeEditor{current: current, changes: CustomAttributeChanges{}}
}

// Set records key=value. An empty value removes the key.
func (e *AttributeEditor) Set(key, value string) error {
	key, err := NewIdentifierKey("CustomAttributeKey", key)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		e.remove(key)
		return nil
	}
	if cur, ok := e.current[key]; ok && cur == value {
		delete(e.changes, key)
		return nil
	}
	e.changes[key] = &value
	return nil
}

func (e *AttributeEditor) Remove(key string) {
	e.remove(strings.TrimSpace(key))
}

func (e *AttributeEditor) remove(key string) {
	if _, ok := e.current[key]; ok {
		e.changes[key] = nil
	} else {
		delete(e.changes, key)
	}
}

func (e *AttributeEditor) HasChanges() bool { return len(e.changes) > 0 }

// Changes returns the recorded changes, or nil when there are none.
func (e *AttributeEditor) Changes() CustomAttributeChanges {
	if len(e.changes) == 0 {
		return nil
	}
	return maps.Clone(e.changes)
}
