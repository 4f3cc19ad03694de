// Package sessions implements the Session aggregate. A session belongs to
// exactly one user; it is persistent when it carries a secret, in which case
// it can be renewed with a refresh token.
package sessions

import (
	"fmt"
	"time"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/secret"
)

const AggType = "session"

type Session struct {
	es.BaseAggregate

	userID           string
	secret           *secret.Password
	isActive         bool
	signedOutBy      string
	signedOutOn      *time.Time
	customAttributes iam.CustomAttributes
}

func newSession() *Session { return &Session{customAttributes: iam.CustomAttributes{}} }

func Empty() *Session { return newSession() }

// New opens a session for userID, in the user's tenant.
func New(userID iam.ID, secretHash *secret.Password, actorID string) (*Session, error) {
	return NewWithID(iam.NewID(userID.TenantID), userID, secretHash, actorID)
}

// NewWithID is New with a caller-chosen session id.
func NewWithID(id, userID iam.ID, secretHash *secret.Password, actorID string) (*Session, error) {
	if err := iam.EnsureSameTenant(userID.TenantID, id.TenantID); err != nil {
		return nil, err
	}
	s := newSession()
	s.SetID(id.String())
	if err := es.Raise(s, actorID, &SessionCreated{UserID: userID.String(), Secret: secretHash}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) GetAggType() string { return AggType }

func (s *Session) Register(r es.Registrar) {
	es.RegisterEvents(r,
		es.Ctor[SessionCreated](),
		es.Ctor[SessionRenewed](),
		es.Ctor[SessionSignedOut](),
		es.Ctor[SessionUpdated](),
		es.Ctor[SessionDeleted](),
	)
}

func (s *Session) Apply(r es.Record) error {
	switch e := r.Event.(type) {
	case *SessionCreated:
		s.userID = e.UserID
		s.secret = e.Secret
		s.isActive = true
	case *SessionRenewed:
		pw := e.Secret
		s.secret = &pw
		s.customAttributes.Apply(e.CustomAttributes)
	case *SessionSignedOut:
		s.isActive = false
		s.signedOutBy = r.ActorID
		on := r.OccurredAt
		s.signedOutOn = &on
	case *SessionUpdated:
		s.customAttributes.Apply(e.CustomAttributes)
	case *SessionDeleted:
	default:
		return fmt.Errorf("%w: %T", es.ErrUnknownEventType, r.Event)
	}
	return nil
}

func (s *Session) ID() iam.ID                             { return iam.MustParseID(s.GetID()) }
func (s *Session) TenantID() iam.TenantID                 { return s.ID().TenantID }
func (s *Session) UserID() string                         { return s.userID }
func (s *Session) IsActive() bool                         { return s.isActive }
func (s *Session) IsPersistent() bool                     { return s.secret != nil }
func (s *Session) SignedOutBy() string                    { return s.signedOutBy }
func (s *Session) SignedOutOn() *time.Time                { return s.signedOutOn }
func (s *Session) CustomAttributes() iam.CustomAttributes { return s.customAttributes.Clone() }

// Renew rotates the secret of a persistent, active session after verifying
// the current one. Attribute changes of upd, if any, ride along.
func (s *Session) Renew(currentSecret string, newSecret secret.Password, actorID string, upd *Update) error {
	switch {
	case !s.isActive:
		return fmt.Errorf("%w: session %s", iam.ErrSessionIsNotActive, s.GetID())
	case s.secret == nil:
		return fmt.Errorf("%w: session %s", iam.ErrSessionIsNotPersistent, s.GetID())
	case !s.secret.Verify(currentSecret):
		return fmt.Errorf("%w: session %s", iam.ErrIncorrectSessionSecret, s.GetID())
	}
	e := &SessionRenewed{Secret: newSecret}
	if upd != nil {
		if err := s.checkUpdate(upd); err != nil {
			return err
		}
		e.CustomAttributes = upd.attrs.Changes()
	}
	if err := es.Raise(s, actorID, e); err != nil {
		return err
	}
	if upd != nil {
		*upd = *s.Edit()
	}
	return nil
}

// SignOut ends an active session. It reports false, raising nothing, when the
// session was already signed out.
func (s *Session) SignOut(actorID string) (bool, error) {
	if !s.isActive {
		return false, nil
	}
	if err := es.Raise(s, actorID, &SessionSignedOut{}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) Delete(actorID string) error {
	if s.IsDeleted() {
		return nil
	}
	return es.Raise(s, actorID, &SessionDeleted{})
}

// === Update ===

type Update struct {
	session *Session
	version es.Version
	attrs   iam.AttributeEditor
}

func (s *Session) Edit() *Update {
	return &Update{session: s, version: s.GetVersion(), attrs: iam.NewAttributeEditor(s.customAttributes)}
}

func (u *Update) SetCustomAttribute(key, value string) error { return u.attrs.Set(key, value) }
func (u *Update) RemoveCustomAttribute(key string)           { u.attrs.Remove(key) }
func (u *Update) HasChanges() bool                           { return u.attrs.HasChanges() }

func (s *Session) checkUpdate(upd *Update) error {
	if upd.session != s || upd.version != s.GetVersion() {
		return fmt.Errorf("%w: session %s", iam.ErrStaleUpdate, s.GetID())
	}
	return nil
}

func (s *Session) Update(actorID string, upd *Update) error {
	if upd == nil || !upd.HasChanges() {
		return nil
	}
	if err := s.checkUpdate(upd); err != nil {
		return err
	}
	if err := es.Raise(s, actorID, &SessionUpdated{CustomAttributes: upd.attrs.Changes()}); err != nil {
		return err
	}
	*upd = *s.Edit()
	return nil
}
