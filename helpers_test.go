package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// mintToken signs claims the way the backend does. Signatures are never
// checked client side, the key only has to be stable.
func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

var rawURL = base64.RawURLEncoding

// rawToken builds a token whose payload segment is exactly payload,
// encoded with the given encoding.
func rawToken(payload []byte, enc *base64.Encoding) string {
	return "x." + enc.EncodeToString(payload) + ".y"
}

func tokenFor(t *testing.T, role string, sub any) string {
	t.Helper()
	claims := jwt.MapClaims{"role": role, "email": role + "@example.com"}
	if sub != nil {
		claims["sub"] = sub
	}
	return mintToken(t, claims)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
