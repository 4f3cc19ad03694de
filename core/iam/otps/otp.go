// Package otps implements the OneTimePassword aggregate: a single-use secret
// challenge with optional expiry and attempt limit.
package otps

import (
	"errors"
	"fmt"
	"time"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/secret"
)

const AggType = "otp"

type OneTimePassword struct {
	es.BaseAggregate

	tenantID         iam.TenantID
	password         secret.Password
	expiresOn        *time.Time
	maximumAttempts  *int
	attemptCount     int
	succeeded        bool
	customAttributes iam.CustomAttributes
}

func newOTP() *OneTimePassword {
	return &OneTimePassword{customAttributes: iam.CustomAttributes{}}
}

func Empty() *OneTimePassword { return newOTP() }

// New creates a one-time password. expiresOn must lie in the future and
// maximumAttempts must be at least 1 when given.
func New(passwordHash secret.Password, tenantID iam.TenantID, expiresOn *time.Time, maximumAttempts *int, actorID string) (*OneTimePassword, error) {
	var failures []iam.ValidationFailure
	if expiresOn != nil {
		t, err := iam.NewFutureTime("ExpiresOn", *expiresOn)
		if err != nil {
			failures = append(failures, failuresOf(err)...)
		}
		expiresOn = &t
	}
	if maximumAttempts != nil && *maximumAttempts < 1 {
		failures = append(failures, iam.ValidationFailure{
			Property: "MaximumAttempts", Code: "GreaterThanValidator", Message: "must be at least 1",
		})
	}
	if len(failures) > 0 {
		return nil, &iam.ValidationError{Failures: failures}
	}

	o := newOTP()
	o.SetID(iam.NewID(tenantID).String())
	err := es.Raise(o, actorID, &OneTimePasswordCreated{
		TenantID:        tenantID,
		Password:        passwordHash,
		ExpiresOn:       expiresOn,
		MaximumAttempts: maximumAttempts,
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func failuresOf(err error) []iam.ValidationFailure {
	var ve *iam.ValidationError
	if errors.As(err, &ve) {
		return ve.Failures
	}
	return []iam.ValidationFailure{{Message: err.Error()}}
}

func (o *OneTimePassword) GetAggType() string { return AggType }

func (o *OneTimePassword) Register(r es.Registrar) {
	es.RegisterEvents(r,
		es.Ctor[OneTimePasswordCreated](),
		es.Ctor[OneTimePasswordValidationFailed](),
		es.Ctor[OneTimePasswordValidationSucceeded](),
		es.Ctor[OneTimePasswordUpdated](),
		es.Ctor[OneTimePasswordDeleted](),
	)
}

func (o *OneTimePassword) Apply(r es.Record) error {
	switch e := r.Event.(type) {
	case *OneTimePasswordCreated:
		o.tenantID = e.TenantID
		o.password = e.Password
		o.expiresOn = e.ExpiresOn
		o.maximumAttempts = e.MaximumAttempts
	case *OneTimePasswordValidationFailed:
		o.attemptCount++
	case *OneTimePasswordValidationSucceeded:
		o.attemptCount++
		o.succeeded = true
	case *OneTimePasswordUpdated:
		o.customAttributes.Apply(e.CustomAttributes)
	case *OneTimePasswordDeleted:
	default:
		return fmt.Errorf("%w: %T", es.ErrUnknownEventType, r.Event)
	}
	return nil
}

func (o *OneTimePassword) ID() iam.ID                             { return iam.MustParseID(o.GetID()) }
func (o *OneTimePassword) TenantID() iam.TenantID                 { return o.tenantID }
func (o *OneTimePassword) ExpiresOn() *time.Time                  { return o.expiresOn }
func (o *OneTimePassword) MaximumAttempts() *int                  { return o.maximumAttempts }
func (o *OneTimePassword) AttemptCount() int                      { return o.attemptCount }
func (o *OneTimePassword) HasValidationSucceeded() bool           { return o.succeeded }
func (o *OneTimePassword) CustomAttributes() iam.CustomAttributes { return o.customAttributes.Clone() }

func (o *OneTimePassword) IsExpired(now time.Time) bool {
	return o.expiresOn != nil && !o.expiresOn.After(now)
}

// Validate checks password against the stored hash. A mismatch is recorded
// before ErrIncorrectOneTimePasswordPassword is returned, so the aggregate
// must be saved on that error too.
func (o *OneTimePassword) Validate(password, actorID string) error {
	switch {
	case o.succeeded:
		return fmt.Errorf("%w: %s", iam.ErrOneTimePasswordAlreadyUsed, o.GetID())
	case o.IsExpired(time.Now()):
		return fmt.Errorf("%w: %s", iam.ErrOneTimePasswordIsExpired, o.GetID())
	case o.maximumAttempts != nil && *o.maximumAttempts <= o.attemptCount:
		return fmt.Errorf("%w: %s", iam.ErrMaximumAttemptsReached, o.GetID())
	}
	if o.password.IsZero() || !o.password.Verify(password) {
		if err := es.Raise(o, actorID, &OneTimePasswordValidationFailed{}); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", iam.ErrIncorrectOneTimePasswordPassword, o.GetID())
	}
	return es.Raise(o, actorID, &OneTimePasswordValidationSucceeded{})
}

// Delete is a no-op on a deleted one-time password.
func (o *OneTimePassword) Delete(actorID string) error {
	if o.IsDeleted() {
		return nil
	}
	return es.Raise(o, actorID, &OneTimePasswordDeleted{})
}

// === Update ===

// Update accumulates custom attribute changes; see OneTimePassword.Edit.
type Update struct {
	otp     *OneTimePassword
	version es.Version
	attrs   iam.AttributeEditor
}

func (o *OneTimePassword) Edit() *Update {
	return &Update{otp: o, version: o.GetVersion(), attrs: iam.NewAttributeEditor(o.customAttributes)}
}

func (u *Update) SetCustomAttribute(key, value string) error { return u.attrs.Set(key, value) }
func (u *Update) RemoveCustomAttribute(key string)           { u.attrs.Remove(key) }
func (u *Update) HasChanges() bool                           { return u.attrs.HasChanges() }

func (o *OneTimePassword) Update(actorID string, upd *Update) error {
	if upd == nil || !upd.HasChanges() {
		return nil
	}
	if upd.otp != o || upd.version != o.GetVersion() {
		return fmt.Errorf("%w: one-time password %s", iam.ErrStaleUpdate, o.GetID())
	}
	if err := es.Raise(o, actorID, &OneTimePasswordUpdated{CustomAttributes: upd.attrs.Changes()}); err != nil {
		return err
	}
	*upd = *o.Edit()
	return nil
}
