package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treewatch/internal/apierr"
	"treewatch/internal/enum"
)

func TestJWTService_IssueAndAuthenticate(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.IssueToken("vol-1", enum.RoleVolunteer, enum.SubjectTypeVolunteer, time.Hour)
	require.NoError(t, err)

	subject, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "vol-1", subject.SubjectID)
	assert.Equal(t, enum.RoleVolunteer, subject.Role)
	assert.Equal(t, enum.SubjectTypeVolunteer, subject.Type)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	svc := NewJWTService("test-secret")
	other := NewJWTService("other-secret")

	token, err := svc.IssueToken("vol-1", enum.RoleVolunteer, enum.SubjectTypeVolunteer, time.Hour)
	require.NoError(t, err)

	_, err = other.Authenticate(context.Background(), token)
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindUnauthenticated, ae.Kind)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.IssueToken("vol-1", enum.RoleVolunteer, enum.SubjectTypeVolunteer, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token)
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindUnauthenticated, ae.Kind)
}

func TestJWTService_RejectsUnrecognizedRole(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.IssueToken("user-1", enum.Role("superadmin"), enum.SubjectTypeUser, time.Hour)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token)
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	admin := Subject{SubjectID: "admin-1", Role: enum.RoleAdmin, Type: enum.SubjectTypeUser}
	volunteer := Subject{SubjectID: "vol-1", Role: enum.RoleVolunteer, Type: enum.SubjectTypeVolunteer}

	assert.NoError(t, RequireRole(admin, enum.RoleAdmin))
	assert.Error(t, RequireRole(volunteer, enum.RoleAdmin))
	assert.NoError(t, RequireRole(volunteer, enum.RoleAdmin, enum.RoleVolunteer))
}

func TestSubjectContext_RoundTrip(t *testing.T) {
	subject := Subject{SubjectID: "vol-1", Role: enum.RoleVolunteer, Type: enum.SubjectTypeVolunteer}
	ctx := WithSubject(context.Background(), subject)

	got, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, subject, got)
}

func TestSubjectContext_MissingReturnsUnauthenticated(t *testing.T) {
	_, err := FromContext(context.Background())
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindUnauthenticated, ae.Kind)
}
