package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// segmentParser is only used to decode segments, it never verifies.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// base64 "+" and "/" are accepted as aliases of the url-safe alphabet.
var toURLAlphabet = strings.NewReplacer("+", "-", "/", "_")

// DecodeClaims decodes the payload segment of a bearer token.
//
// Nothing is verified here: a forged or expired token decodes just fine.
// The backend is the only authority on token validity, the result is meant
// for routing and display decisions.
func DecodeClaims(token string) (*JWTClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, ErrTokenMissingSegment
	}

	payload, err := segmentParser.DecodeSegment(toURLAlphabet.Replace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64: %v", ErrTokenMalformed, err)
	}

	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not utf-8", ErrTokenMalformed)
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: payload is not json: %v", ErrTokenMalformed, err)
	}

	if raw == nil {
		return nil, fmt.Errorf("%w: payload is not a json object", ErrTokenMalformed)
	}

	return claimsFromPayload(payload, raw), nil
}

// ParseClaims is DecodeClaims without the error, nil means the token could
// not be decoded.
func ParseClaims(token string) *JWTClaims {
	claims, err := DecodeClaims(token)
	if err != nil {
		return nil
	}
	return claims
}

func claimsFromPayload(payload []byte, raw map[string]any) *JWTClaims {
	claims := &JWTClaims{Raw: raw}

	// Registered claims with unexpected types are dropped, the rest of the
	// payload stays usable.
	var registered jwt.RegisteredClaims
	if err := json.Unmarshal(payload, &registered); err == nil {
		claims.RegisteredClaims = registered
	} else if sub, ok := raw["sub"].(string); ok {
		claims.RegisteredClaims.Subject = sub
	}

	if role, ok := raw["role"].(string); ok {
		claims.UserRole = role
	}

	if email, ok := raw["email"].(string); ok {
		claims.UserEmail = email
	}

	return claims
}
