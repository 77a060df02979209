package jwtx

import (
	"github.com/golang-jwt/jwt/v5"
)

// MinHS256KeyBytes is the minimum accepted secret length. 32 bytes keeps the
// MAC key at least as strong as the SHA-256 output.
const MinHS256KeyBytes = 32

// HS256Signer implements the Signer interface using HMAC SHA-256 with a
// shared symmetric secret. Tokens are signed, not encrypted: claims are
// readable by anyone holding the token.
type HS256Signer struct {
	key []byte
	alg string
}

func newHS256Signer(secret []byte) (*HS256Signer, error) {
	s := &HS256Signer{
		key: secret,
		alg: jwt.SigningMethodHS256.Alg(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HS256Signer) Alg() string { return s.alg }

// Sign takes your claims and turns them into a signed compact JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.key)
}

// Validate checks the key material. A short secret is a configuration bug,
// never something to limp along with at request time.
func (s *HS256Signer) Validate() error {
	if len(s.key) < MinHS256KeyBytes {
		return ErrWeakKey
	}
	return nil
}
