package es

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type (
	counterAgg struct {
		BaseAggregate
		Count int
	}

	counterCreated struct {
		Start int `json:"start"`
	}
	counterIncremented struct {
		By int `json:"by"`
	}
	counterDeleted struct{ Deletion }
)

func (*counterCreated) EventType() string     { return "CounterCreated" }
func (*counterIncremented) EventType() string { return "CounterIncremented" }
func (*counterDeleted) EventType() string     { return "CounterDeleted" }

func (e *counterIncremented) Validate() error {
	if e.By <= 0 {
		return errors.New("increment must be positive")
	}
	return nil
}

func newCounter() *counterAgg { return &counterAgg{} }

func (a *counterAgg) GetAggType() string { return "counter" }
func (a *counterAgg) Register(r Registrar) {
	RegisterEvents(r, Ctor[counterCreated](), Ctor[counterIncremented](), Ctor[counterDeleted]())
}
func (a *counterAgg) Apply(r Record) error {
	switch e := r.Event.(type) {
	case *counterCreated:
		a.Count = e.Start
	case *counterIncremented:
		a.Count += e.By
	case *counterDeleted:
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEventType, r.Event)
	}
	return nil
}

func createCounter(t *testing.T, id string) *counterAgg {
	t.Helper()
	a := newCounter()
	a.SetID(id)
	require.NoError(t, Raise(a, "alice", &counterCreated{Start: 1}))
	return a
}

func TestRaise_versionAndAudit(t *testing.T) {
	a := createCounter(t, "c-1")
	require.NoError(t, Raise(a, "bob", &counterIncremented{By: 2}))

	require.Equal(t, Version(2), a.GetVersion())
	require.Equal(t, Version(0), a.ExpectedVersion())
	require.Equal(t, 3, a.Count)
	require.Equal(t, "alice", a.CreatedBy())
	require.Equal(t, "bob", a.UpdatedBy())
	require.False(t, a.CreatedOn().IsZero())
	require.True(t, a.HasChanges())

	recs := a.Uncommitted()
	require.Len(t, recs, 2)
	require.Equal(t, "CounterCreated", recs[0].Type)
	require.Equal(t, Version(1), recs[0].Version)
	require.Equal(t, Version(2), recs[1].Version)
}

func TestRaise_validationFailureStagesNothing(t *testing.T) {
	a := createCounter(t, "c-1")
	err := Raise(a, "", &counterIncremented{By: 0})
	require.Error(t, err)
	require.Equal(t, Version(1), a.GetVersion())
	require.Len(t, a.Uncommitted(), 1)
}

func TestRaise_deletedAggregate(t *testing.T) {
	a := createCounter(t, "c-1")
	require.NoError(t, Raise(a, "", &counterDeleted{}))
	require.True(t, a.IsDeleted())

	err := Raise(a, "", &counterIncremented{By: 1})
	require.ErrorIs(t, err, ErrAggregateDeleted)
	require.Equal(t, Version(2), a.GetVersion())
}

func TestLoad_replayIsDeterministic(t *testing.T) {
	a := createCounter(t, "c-1")
	for i := 1; i <= 4; i++ {
		require.NoError(t, Raise(a, "bob", &counterIncremented{By: i}))
	}
	recs := a.Uncommitted()

	b1, b2 := newCounter(), newCounter()
	require.NoError(t, Load(b1, recs...))
	require.NoError(t, Load(b2, recs...))

	require.Equal(t, b1.Count, b2.Count)
	require.Equal(t, a.Count, b1.Count)
	require.Equal(t, Version(len(recs)), b1.GetVersion())
	require.Equal(t, b1.UpdatedOn(), b2.UpdatedOn())
	require.False(t, b1.HasChanges())
}

func TestLoad_versionGap(t *testing.T) {
	a := createCounter(t, "c-1")
	require.NoError(t, Raise(a, "", &counterIncremented{By: 1}))
	recs := a.Uncommitted()

	err := Load(newCounter(), recs[1])
	require.ErrorIs(t, err, ErrVersionGap)
}
