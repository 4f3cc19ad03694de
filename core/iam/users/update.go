package users

import (
	"fmt"
	"time"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
)

// Update accumulates profile changes; see User.Edit.
type Update struct {
	user    *User
	version es.Version
	event   UserUpdated
	attrs   iam.AttributeEditor
}

// Edit starts an update against the current state of u.
func (u *User) Edit() *Update {
	return &Update{user: u, version: u.GetVersion(), attrs: iam.NewAttributeEditor(u.customAttributes)}
}

func (p *Update) SetEmail(v *iam.Email) *Update {
	p.event.Email = iam.Diff(p.user.email, v)
	return p
}

func (p *Update) SetPhone(v *iam.Phone) *Update {
	p.event.Phone = iam.Diff(p.user.phone, v)
	return p
}

func (p *Update) SetAddress(v *iam.Address) *Update {
	p.event.Address = iam.Diff(p.user.address, v)
	return p
}

func (p *Update) SetFirstName(v *string) *Update {
	p.event.FirstName = iam.Diff(p.user.firstName, v)
	return p
}

func (p *Update) SetMiddleName(v *string) *Update {
	p.event.MiddleName = iam.Diff(p.user.middleName, v)
	return p
}

func (p *Update) SetLastName(v *string) *Update {
	p.event.LastName = iam.Diff(p.user.lastName, v)
	return p
}

func (p *Update) SetNickname(v *string) *Update {
	p.event.Nickname = iam.Diff(p.user.nickname, v)
	return p
}

func (p *Update) SetBirthdate(v *time.Time) *Update {
	p.event.Birthdate = iam.Diff(p.user.birthdate, v)
	return p
}

func (p *Update) SetGender(v *string) *Update {
	p.event.Gender = iam.Diff(p.user.gender, v)
	return p
}

func (p *Update) SetLocale(v *string) *Update {
	p.event.Locale = iam.Diff(p.user.locale, v)
	return p
}

func (p *Update) SetTimeZone(v *string) *Update {
	p.event.TimeZone = iam.Diff(p.user.timeZone, v)
	return p
}

func (p *Update) SetPicture(v *string) *Update {
	p.event.Picture = iam.Diff(p.user.picture, v)
	return p
}

func (p *Update) SetProfile(v *string) *Update {
	p.event.Profile = iam.Diff(p.user.profile, v)
	return p
}

func (p *Update) SetWebsite(v *string) *Update {
	p.event.Website = iam.Diff(p.user.website, v)
	return p
}

func (p *Update) SetCustomAttribute(key, value string) error { return p.attrs.Set(key, value) }
func (p *Update) RemoveCustomAttribute(key string)           { p.attrs.Remove(key) }

func (p *Update) HasChanges() bool { return p.event.HasChanges() || p.attrs.HasChanges() }

// Update raises one UserUpdated event with the changes of upd, or nothing when
// upd recorded none.
func (u *User) Update(actorID string, upd *Update) error {
	if upd == nil || !upd.HasChanges() {
		return nil
	}
	if upd.user != u || upd.version != u.GetVersion() {
		return fmt.Errorf("%w: user %s", iam.ErrStaleUpdate, u.GetID())
	}
	e := upd.event
	e.CustomAttributes = upd.attrs.Changes()
	if err := es.Raise(u, actorID, &e); err != nil {
		return err
	}
	*upd = *u.Edit()
	return nil
}
