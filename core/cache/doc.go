// Package cache provides a key-value cache with LRU eviction and per-entry
// TTL, plus a typed wrapper.
//
//	c := cache.NewLRU(cache.LRUOpts{Size: 1000})
//	defer c.Close()
//
//	actors := cache.NewTyped[*readmodel.Actor](c)
//	actors.Put(actor.ID, actor, cache.WithTTL(time.Minute))
//
// [Nop] never stores anything and stands in when caching is disabled.
package cache
