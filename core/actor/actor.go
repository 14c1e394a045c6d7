// Package actor carries the authenticated caller through context.
package actor

import "context"

type Actor struct {
	UserID         *uint
	OrganizationID uint
	Admin          bool
}

type ctxKey struct{}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) Actor {
	if a, ok := ctx.Value(ctxKey{}).(Actor); ok {
		return a
	}
	return Actor{}
}

func IsAdmin(ctx context.Context) bool {
	return From(ctx).Admin
}

// UserID returns the caller's user id, nil for system actions.
func UserID(ctx context.Context) *uint {
	return From(ctx).UserID
}

// System marks ctx as a scheduler/system caller with administrative rights.
func System(ctx context.Context) context.Context {
	return With(ctx, Actor{Admin: true})
}
