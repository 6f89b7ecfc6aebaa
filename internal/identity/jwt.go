package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"treewatch/internal/apierr"
	"treewatch/internal/enum"
)

// jwtClaims is the shape of the access token minted for users and
// volunteers: subject id, role, and subject type, signed with JWTSecret.
type jwtClaims struct {
	Role        string `json:"role"`
	SubjectType string `json:"type"`
	jwt.RegisteredClaims
}

// JWTService is the default Identity Service adapter: HMAC-signed bearer
// tokens validated against a shared secret, the same signing key the Push
// Bus authenticates connections with.
type JWTService struct {
	secret []byte
}

// NewJWTService constructs a JWTService from the configured signing secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// IssueToken mints a signed access token for the given subject, expiring
// after ttl. Used by the seed/test tooling and any local credential issuer
// sitting in front of this service.
func (s *JWTService) IssueToken(subjectID string, role enum.Role, subjectType enum.SubjectType, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwtClaims{
		Role:        string(role),
		SubjectType: string(subjectType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("identity: sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates tokenString's signature and expiry and extracts
// the {subjectId, role, type} triple.
func (s *JWTService) Authenticate(_ context.Context, tokenString string) (Subject, error) {
	var claims jwtClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Subject{}, apierr.Wrap(apierr.KindUnauthenticated, "InvalidToken", "invalid or expired token", errInvalidToken)
	}

	if claims.Subject == "" {
		return Subject{}, apierr.New(apierr.KindUnauthenticated, "InvalidToken", "token is missing a subject claim")
	}

	role := enum.Role(claims.Role)
	subjectType := enum.SubjectType(claims.SubjectType)
	if !isValidRole(role) || !isValidSubjectType(subjectType) {
		return Subject{}, apierr.New(apierr.KindUnauthenticated, "InvalidToken", "token carries an unrecognized role or subject type")
	}

	return Subject{SubjectID: claims.Subject, Role: role, Type: subjectType}, nil
}

func isValidRole(role enum.Role) bool {
	for _, v := range enum.Role("").Values() {
		if string(role) == v {
			return true
		}
	}
	return false
}

func isValidSubjectType(t enum.SubjectType) bool {
	for _, v := range enum.SubjectType("").Values() {
		if string(t) == v {
			return true
		}
	}
	return false
}
