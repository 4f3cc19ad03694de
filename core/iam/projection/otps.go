package projection

import (
	"context"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam/otps"
	"github.com/codewandler/iam-go/core/iam/readmodel"
)

func (s *Synchronizer) syncOTP(ctx context.Context, env es.Envelope, rec es.Record) error {
	table := s.store.OneTimePasswords()
	switch e := rec.Event.(type) {
	case *otps.OneTimePasswordCreated:
		return create(ctx, s, table, env, rec, func(o *readmodel.OneTimePassword) error {
			o.ExpiresOn = e.ExpiresOn
			o.MaximumAttempts = e.MaximumAttempts
			return nil
		})
	case *otps.OneTimePasswordValidationFailed:
		return update(ctx, s, table, env, rec, func(o *readmodel.OneTimePassword) error {
			o.AttemptCount++
			return nil
		})
	case *otps.OneTimePasswordValidationSucceeded:
		return update(ctx, s, table, env, rec, func(o *readmodel.OneTimePassword) error {
			o.AttemptCount++
			o.HasValidationSucceeded = true
			return nil
		})
	case *otps.OneTimePasswordUpdated:
		return update(ctx, s, table, env, rec, func(o *readmodel.OneTimePassword) error {
			applyAttributes(&o.CustomAttributes, e.CustomAttributes)
			return nil
		})
	case *otps.OneTimePasswordDeleted:
		return remove(ctx, s, table, env, rec)
	}
	return unexpected(rec)
}
