package projection

import (
	"context"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam/readmodel"
	"github.com/codewandler/iam-go/core/iam/sessions"
)

func (s *Synchronizer) syncSession(ctx context.Context, env es.Envelope, rec es.Record) error {
	table := s.store.Sessions()
	switch e := rec.Event.(type) {
	case *sessions.SessionCreated:
		return create(ctx, s, table, env, rec, func(ss *readmodel.Session) error {
			user, err := s.store.Users().Get(ctx, e.UserID)
			if err != nil {
				return err
			}
			if user == nil {
				return missing("user", e.UserID, env.AggregateID)
			}
			ss.UserID = e.UserID
			ss.IsPersistent = e.Secret != nil
			ss.IsActive = true
			return nil
		})
	case *sessions.SessionRenewed:
		return update(ctx, s, table, env, rec, func(ss *readmodel.Session) error {
			ss.IsPersistent = true
			applyAttributes(&ss.CustomAttributes, e.CustomAttributes)
			return nil
		})
	case *sessions.SessionSignedOut:
		return update(ctx, s, table, env, rec, func(ss *readmodel.Session) error {
			on := rec.OccurredAt
			ss.IsActive = false
			ss.SignedOutBy = rec.ActorID
			ss.SignedOutOn = &on
			return nil
		})
	case *sessions.SessionUpdated:
		return update(ctx, s, table, env, rec, func(ss *readmodel.Session) error {
			applyAttributes(&ss.CustomAttributes, e.CustomAttributes)
			return nil
		})
	case *sessions.SessionDeleted:
		return remove(ctx, s, table, env, rec)
	}
	return unexpected(rec)
}
