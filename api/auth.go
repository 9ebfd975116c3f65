package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrMissingCredential is returned when a connection attempt carries no
	// credential at all.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential is returned for malformed, wrongly signed, or
	// expired credentials.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Auth verifies the credential a client presents when opening a push
// connection. It runs in one of two modes: HS256 against the shared secret
// the rest of the system issues access tokens with, or RS256 against an
// external identity provider's JWKS.
type Auth struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	secret   []byte
	parser   *jwt.Parser
}

// NewSharedSecretAuth creates an Auth verifying HS256 tokens against secret.
func NewSharedSecretAuth(secret []byte) *Auth {
	if len(secret) == 0 {
		panic("shared secret must not be empty")
	}
	return &Auth{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// NewJWKSAuth creates an Auth verifying RS256 tokens against the given JWKS.
func NewJWKSAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	return &Auth{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// UserIDFromCredential verifies the credential and returns the identity it
// was issued for. Verification has no side effects: binding a connection to
// the user's room is the caller's job, and only on success.
func (a *Auth) UserIDFromCredential(credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredential
	}
	if strings.Count(credential, ".") != 2 {
		return "", fmt.Errorf("%w: not a signed token", ErrInvalidCredential)
	}

	var token *jwt.Token
	var err error
	if a.secret != nil {
		token, err = a.parser.Parse(credential, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.secret, nil
		})
	} else {
		token, err = a.parser.Parse(credential, a.jwks.Keyfunc)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid claims", ErrInvalidCredential)
	}
	if !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return "", fmt.Errorf("%w: token has no expiry", ErrInvalidCredential)
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, false) {
		return "", fmt.Errorf("%w: invalid audience", ErrInvalidCredential)
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, false) {
		return "", fmt.Errorf("%w: invalid issuer", ErrInvalidCredential)
	}

	return subjectClaim(claims)
}

// subjectClaim extracts the user identifier. Tokens issued by the auth
// service carry it in userId; IdP-issued tokens carry it in sub.
func subjectClaim(claims jwt.MapClaims) (string, error) {
	if id, ok := claims["userId"].(string); ok && id != "" {
		return id, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("%w: no subject claim", ErrInvalidCredential)
}
