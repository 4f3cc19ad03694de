package iam

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	tenantMaxLength = 255
	idSeparator     = ":"
)

// TenantID scopes entities and uniqueness. The empty TenantID is the global scope.
type TenantID string

func ParseTenantID(s string) (TenantID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if len(s) > tenantMaxLength {
		return "", NewValidationError("TenantID", "MaximumLengthValidator", "must be at most 255 characters")
	}
	for _, r := range s {
		if !isTenantRune(r) {
			return "", NewValidationError("TenantID", "AllowedCharactersValidator", fmt.Sprintf("contains disallowed character %q", r))
		}
	}
	return TenantID(s), nil
}

func isTenantRune(r rune) bool {
	return r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func (t TenantID) String() string { return string(t) }
func (t TenantID) IsZero() bool   { return t == "" }

// ID identifies an entity within its tenant. Its String form is the event
// stream id: "{tenant}:{uuid}", or just "{uuid}" without tenant.
type ID struct {
	TenantID TenantID
	EntityID uuid.UUID
}

func NewID(tenantID TenantID) ID { return ID{TenantID: tenantID, EntityID: uuid.New()} }

func ParseID(s string) (ID, error) {
	tenant, entity := "", s
	if i := strings.LastIndex(s, idSeparator); i >= 0 {
		tenant, entity = s[:i], s[i+1:]
	}
	t, err := ParseTenantID(tenant)
	if err != nil {
		return ID{}, err
	}
	e, err := uuid.Parse(entity)
	if err != nil {
		return ID{}, NewValidationError("ID", "IdentifierValidator", err.Error())
	}
	return ID{TenantID: t, EntityID: e}, nil
}

// MustParseID is ParseID for stream ids that were produced by ID.String.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) IsZero() bool { return id.EntityID == uuid.Nil }

func (id ID) String() string {
	if id.TenantID.IsZero() {
		return id.EntityID.String()
	}
	return id.TenantID.String() + idSeparator + id.EntityID.String()
}
