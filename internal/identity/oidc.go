package identity

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"treewatch/internal/apierr"
	"treewatch/internal/enum"
)

// OIDCConfig points the optional OIDC-backed Identity Service adapter at an
// external provider (e.g. a realm issuing tokens for users and volunteers).
type OIDCConfig struct {
	IssuerURL string
	ClientID  string
}

// OIDCService validates bearer tokens against an external OIDC provider
// instead of the local JWTService, for deployments that delegate identity
// to an upstream provider while still needing the narrower
// {subjectId, role, type} contract this engine's collaborators expect.
type OIDCService struct {
	verifier  *oidc.IDTokenVerifier
	roleClaim string
	typeClaim string
}

// NewOIDCService discovers the provider at config.IssuerURL and builds a
// verifier that checks issuer, signature and expiry; the token's audience is
// not checked against config.ClientID. roleClaim/typeClaim name the custom claims
// the provider is configured to emit for role and subject type.
func NewOIDCService(ctx context.Context, config OIDCConfig, roleClaim, typeClaim string) (*OIDCService, error) {
	if config.IssuerURL == "" {
		return nil, fmt.Errorf("identity: OIDC issuer URL is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("identity: OIDC client ID is required")
	}

	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("identity: discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:          config.ClientID,
		SkipClientIDCheck: true,
	})

	return &OIDCService{verifier: verifier, roleClaim: roleClaim, typeClaim: typeClaim}, nil
}

// Authenticate verifies tokenString against the discovered provider and
// extracts the subject id plus the configured role/type claims.
func (s *OIDCService) Authenticate(ctx context.Context, tokenString string) (Subject, error) {
	idToken, err := s.verifier.Verify(ctx, tokenString)
	if err != nil {
		return Subject{}, apierr.Wrap(apierr.KindUnauthenticated, "InvalidToken", "invalid or expired token", err)
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return Subject{}, apierr.Wrap(apierr.KindUnauthenticated, "InvalidToken", "failed to extract claims", err)
	}

	role, _ := claims[s.roleClaim].(string)
	subjectType, _ := claims[s.typeClaim].(string)
	if !isValidRole(enum.Role(role)) || !isValidSubjectType(enum.SubjectType(subjectType)) {
		return Subject{}, apierr.New(apierr.KindUnauthenticated, "InvalidToken", "token carries an unrecognized role or subject type")
	}

	return Subject{
		SubjectID: idToken.Subject,
		Role:      enum.Role(role),
		Type:      enum.SubjectType(subjectType),
	}, nil
}
