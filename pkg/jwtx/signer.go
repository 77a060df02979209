package jwtx

// Signer is our interface for anything that can sign access-token claims.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Validate() error
}

// NewSignerHS256 creates an HS256 signer from raw secret bytes. The secret
// must be at least MinHS256KeyBytes long; Validate enforces this so weak key
// material aborts startup instead of signing forgeable tokens.
func NewSignerHS256(secret []byte) (Signer, error) {
	return newHS256Signer(secret)
}
