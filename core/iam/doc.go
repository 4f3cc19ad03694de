// Package iam holds what the identity aggregates share: tenant-scoped ids,
// validated value objects, settings, field diffs and the error taxonomy.
//
// The aggregates themselves live in the sub packages roles, users, sessions,
// apikeys and otps. Each exposes an Edit builder; setters on the builder only
// record values that differ from the current state, and Update raises a single
// event when something was recorded:
//
//	upd := user.Edit()
//	upd.SetEmail(&email)
//	upd.SetFirstName("Ada")
//	err := user.Update(actorID, upd) // one UserUpdated event, or nothing
package iam
