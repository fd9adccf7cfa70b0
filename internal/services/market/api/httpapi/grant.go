package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/openwork/internal/platform/errors"
	"github.com/louisbranch/openwork/internal/platform/requestctx"
)

// grantEnv holds raw env values before post-parse validation.
type grantEnv struct {
	Issuer   string `env:"OPENWORK_AUTH_GRANT_ISSUER"`
	Audience string `env:"OPENWORK_AUTH_GRANT_AUDIENCE"`
	Secret   string `env:"OPENWORK_AUTH_GRANT_SECRET"`
}

// GrantConfig defines how principal grants are verified. The auth
// collaborator issues HS256 tokens carrying the principal id in sub and the
// marketplace role in a role claim.
type GrantConfig struct {
	Issuer   string
	Audience string
	Secret   []byte
	Now      func() time.Time
}

// grantClaims is the internal claims type used for JWT parsing.
type grantClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// LoadGrantConfigFromEnv reads grant verification configuration.
func LoadGrantConfigFromEnv(now func() time.Time) (GrantConfig, error) {
	var raw grantEnv
	if err := env.Parse(&raw); err != nil {
		return GrantConfig{}, fmt.Errorf("parse auth grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	secret := strings.TrimSpace(raw.Secret)
	if issuer == "" {
		return GrantConfig{}, fmt.Errorf("OPENWORK_AUTH_GRANT_ISSUER is required")
	}
	if audience == "" {
		return GrantConfig{}, fmt.Errorf("OPENWORK_AUTH_GRANT_AUDIENCE is required")
	}
	if secret == "" {
		return GrantConfig{}, fmt.Errorf("OPENWORK_AUTH_GRANT_SECRET is required")
	}
	if now == nil {
		now = time.Now
	}
	return GrantConfig{
		Issuer:   issuer,
		Audience: audience,
		Secret:   []byte(secret),
		Now:      now,
	}, nil
}

// ValidateGrant verifies a principal grant token and returns the identity it
// carries.
func ValidateGrant(grant string, cfg GrantConfig) (requestctx.Principal, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return requestctx.Principal{}, apperrors.New(apperrors.CodeForbidden, "auth grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Secret) == 0 {
		return requestctx.Principal{}, errors.New("grant verifier is not configured")
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return requestctx.Principal{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return requestctx.Principal{}, apperrors.WithMetadata(apperrors.CodeForbidden,
			"auth grant issuer mismatch",
			map[string]string{"Field": "issuer"})
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return requestctx.Principal{}, apperrors.WithMetadata(apperrors.CodeForbidden,
			"auth grant audience mismatch",
			map[string]string{"Field": "audience"})
	}
	if parsed.ExpiresAt == nil {
		return requestctx.Principal{}, apperrors.New(apperrors.CodeForbidden, "auth grant exp is required")
	}

	now := cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return requestctx.Principal{}, apperrors.New(apperrors.CodeForbidden, "auth grant is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return requestctx.Principal{}, apperrors.New(apperrors.CodeForbidden, "auth grant not active yet")
	}

	if strings.TrimSpace(parsed.Subject) == "" {
		return requestctx.Principal{}, apperrors.New(apperrors.CodeForbidden, "auth grant sub is required")
	}
	role := requestctx.Role(strings.TrimSpace(parsed.Role))
	if role != requestctx.RoleClient && role != requestctx.RoleFreelancer {
		return requestctx.Principal{}, apperrors.WithMetadata(apperrors.CodeForbidden,
			"auth grant role is invalid",
			map[string]string{"Field": "role"})
	}

	return requestctx.Principal{ID: parsed.Subject, Role: role}, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeForbidden, "auth grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeForbidden, "auth grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeForbidden, "auth grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
