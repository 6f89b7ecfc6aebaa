// Package identity adapts bearer credentials into the {subjectId, role,
// type} triple the request surface and Push Bus authenticate against.
package identity

import (
	"context"
	"errors"
	"fmt"

	"treewatch/internal/apierr"
	"treewatch/internal/enum"
)

// Subject is the authenticated principal behind a bearer credential.
type Subject struct {
	SubjectID string
	Role      enum.Role
	Type      enum.SubjectType
}

// HasRole reports whether the subject carries the given role.
func (s Subject) HasRole(role enum.Role) bool {
	return s.Role == role
}

// Service validates a bearer credential and extracts its subject. Both the
// HTTP request surface and the Push Bus authenticate through the same
// Service and the same signing key, per the connect-time authentication
// requirement on the Push Bus.
type Service interface {
	Authenticate(ctx context.Context, token string) (Subject, error)
}

var errInvalidToken = errors.New("identity: invalid or expired token")

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const subjectContextKey contextKey = "subject"

// WithSubject stores the authenticated subject in the context.
func WithSubject(ctx context.Context, subject Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

// FromContext retrieves the authenticated subject from the context.
// Returns apierr.KindUnauthenticated if none is present.
func FromContext(ctx context.Context) (Subject, error) {
	subject, ok := ctx.Value(subjectContextKey).(Subject)
	if !ok {
		return Subject{}, apierr.New(apierr.KindUnauthenticated, "Unauthenticated", "request is not authenticated")
	}
	return subject, nil
}

// RequireRole returns apierr.KindUnauthorized if the subject does not carry
// one of the allowed roles.
func RequireRole(subject Subject, allowed ...enum.Role) error {
	for _, role := range allowed {
		if subject.Role == role {
			return nil
		}
	}
	return apierr.New(apierr.KindUnauthorized, "RoleMismatch",
		fmt.Sprintf("role %q is not permitted for this operation", subject.Role))
}
