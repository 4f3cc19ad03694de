package projection

import (
	"context"
	"slices"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam/apikeys"
	"github.com/codewandler/iam-go/core/iam/readmodel"
)

func (s *Synchronizer) syncApiKey(ctx context.Context, env es.Envelope, rec es.Record) error {
	table := s.store.ApiKeys()
	switch e := rec.Event.(type) {
	case *apikeys.ApiKeyCreated:
		return create(ctx, s, table, env, rec, func(k *readmodel.ApiKey) error {
			k.DisplayName = e.DisplayName
			return s.saveActor(ctx, apiKeyActor(k))
		})
	case *apikeys.ApiKeyUpdated:
		return update(ctx, s, table, env, rec, func(k *readmodel.ApiKey) error {
			if v, ok := e.DisplayName.Value(); ok {
				k.DisplayName = v
			}
			e.Description.ApplyTo(&k.Description)
			e.ExpiresOn.ApplyTo(&k.ExpiresOn)
			applyAttributes(&k.CustomAttributes, e.CustomAttributes)
			return s.saveActor(ctx, apiKeyActor(k))
		})
	case *apikeys.ApiKeyRoleAdded:
		return update(ctx, s, table, env, rec, func(k *readmodel.ApiKey) error {
			role, err := s.store.Roles().Get(ctx, e.RoleID)
			if err != nil {
				return err
			}
			if role == nil {
				return missing("role", e.RoleID, k.StreamID)
			}
			if !readmodel.HasRole(k.Roles, e.RoleID) {
				k.Roles = append(k.Roles, e.RoleID)
			}
			return nil
		})
	case *apikeys.ApiKeyRoleRemoved:
		return update(ctx, s, table, env, rec, func(k *readmodel.ApiKey) error {
			k.Roles = slices.DeleteFunc(k.Roles, func(id string) bool { return id == e.RoleID })
			return nil
		})
	case *apikeys.ApiKeyAuthenticated:
		return update(ctx, s, table, env, rec, func(k *readmodel.ApiKey) error {
			on := rec.OccurredAt
			k.AuthenticatedOn = &on
			return nil
		})
	case *apikeys.ApiKeyDeleted:
		if err := remove(ctx, s, table, env, rec); err != nil {
			return err
		}
		return s.markActorDeleted(ctx, env.AggregateID)
	}
	return unexpected(rec)
}

func apiKeyActor(k *readmodel.ApiKey) *readmodel.Actor {
	return &readmodel.Actor{
		ID:          k.StreamID,
		TenantID:    k.TenantID,
		Type:        readmodel.ActorApiKey,
		DisplayName: k.DisplayName,
	}
}
