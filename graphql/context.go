package graphql

import (
	"context"
	"strconv"

	gql "github.com/graph-gophers/graphql-go"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
)

// OrganizationID returns the organization the request was scoped to by the
// HTTP middleware.
func OrganizationID(ctx context.Context) (uint, error) {
	org := actor.From(ctx).OrganizationID
	if org == 0 {
		return 0, apperr.Validation("organization", "request is not scoped to an organization")
	}
	return org, nil
}

// ParseID converts a GraphQL ID argument to a row id.
func ParseID(field string, id gql.ID) (uint, error) {
	v, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.Validation(field, "invalid id %q", string(id))
	}
	return uint(v), nil
}

// ToID formats a row id for GraphQL.
func ToID(id uint) gql.ID {
	return gql.ID(strconv.FormatUint(uint64(id), 10))
}

// OptionalID is ToID for nullable references.
func OptionalID(id *uint) *gql.ID {
	if id == nil {
		return nil
	}
	v := ToID(*id)
	return &v
}
