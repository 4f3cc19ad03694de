// Package sf is a typed wrapper around golang.org/x/sync/singleflight.
//
// Concurrent [Singleflight.Do] calls sharing a key run fn once and all
// receive its result:
//
//	flight := sf.New[readmodel.Actor]()
//	actor, err := flight.Do(id, func() (*readmodel.Actor, error) {
//	    return actors.Get(ctx, id)
//	})
package sf
