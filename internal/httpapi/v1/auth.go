package v1

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

type jwtClaims struct {
	Issuer    string `json:"iss,omitempty"`
	Subject   string `json:"sub,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

func parseBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	if !strings.HasPrefix(h, "Bearer ") && !strings.HasPrefix(h, "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[len("Bearer "):]), true
}

func base64URLDecode(s string) ([]byte, error) {
	// JWT uses base64url without padding
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return base64.URLEncoding.DecodeString(s)
}

func verifyHS256(token, secret string) (jwtClaims, error) {
	var empty jwtClaims
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return empty, errors.New("invalid token format")
	}
	headerB, err := base64URLDecode(parts[0])
	if err != nil {
		return empty, errors.New("bad header b64")
	}
	payloadB, err := base64URLDecode(parts[1])
	if err != nil {
		return empty, errors.New("bad payload b64")
	}
	sigB, err := base64URLDecode(parts[2])
	if err != nil {
		return empty, errors.New("bad signature b64")
	}

	var hdr struct{ Alg, Typ string }
	if err := json.Unmarshal(headerB, &hdr); err != nil {
		return empty, errors.New("bad header json")
	}
	if !strings.EqualFold(hdr.Alg, "HS256") {
		return empty, errors.New("unsupported alg")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(parts[0]))
	mac.Write([]byte{'.'})
	mac.Write([]byte(parts[1]))
	if !hmac.Equal(sigB, mac.Sum(nil)) {
		return empty, errors.New("invalid signature")
	}

	var claims jwtClaims
	if err := json.Unmarshal(payloadB, &claims); err != nil {
		return empty, errors.New("bad claims json")
	}
	now := time.Now().Unix()
	if claims.NotBefore != 0 && now < claims.NotBefore {
		return empty, errors.New("token not yet valid")
	}
	if claims.ExpiresAt != 0 && now >= claims.ExpiresAt {
		return empty, errors.New("token expired")
	}
	return claims, nil
}
