package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// CollectRequest asks a provider for a new payment link.
type CollectRequest struct {
	Amount      float64
	CallbackURL string
	Receipt     string
}

type CollectResponse struct {
	CollectRequestID string
	PaymentURL       string
}

// CollectStatus is the provider's view of a collect request. Details holds the
// provider body fragment untouched.
type CollectStatus struct {
	Status  string
	Amount  float64
	Details json.RawMessage
}

// UpstreamError carries a failed provider response so callers can surface the
// body verbatim.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Provider, e.StatusCode, string(e.Body))
}

// Details returns the body as raw JSON when it parses, else as a string.
func (e *UpstreamError) Details() interface{} {
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return string(e.Body)
}

// Signer produces the request signature the provider expects.
type Signer interface {
	Sign(claims map[string]interface{}) (string, error)
}

// JWTSigner signs claims as an HS256 JWT keyed with the provider PG key.
type JWTSigner struct {
	key []byte
}

func NewJWTSigner(key string) *JWTSigner {
	return &JWTSigner{key: []byte(key)}
}

func (s *JWTSigner) Sign(claims map[string]interface{}) (string, error) {
	if len(s.key) == 0 {
		return "", fmt.Errorf("signing key is not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	return signed, nil
}
