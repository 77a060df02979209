package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/latticehq/lattice-auth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testGrants() []jwtx.TenantGrant {
	return []jwtx.TenantGrant{
		{TenantID: "t-acme", TenantName: "Acme", AppName: "crm", Role: "TENANT_ADMIN"},
		{TenantID: "t-globex", TenantName: "Globex", AppName: "crm", Role: "USER"},
	}
}

func TestHS256RoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: "lattice-auth"})

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"ada@acme.test", "u-1", "Ada Lovelace",
		testGrants(),
		15*time.Minute, "lattice-auth", now,
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)

	require.Equal(t, "ada@acme.test", got.Subject)
	require.Equal(t, "u-1", got.UserID)
	require.Equal(t, "Ada Lovelace", got.FullName)
	require.Equal(t, jwtx.ClaimsVersion, got.Ver)
	require.Equal(t, claims.ID, got.ID, "jti must survive the round trip")
	require.Equal(t, testGrants(), got.Tenants, "role snapshot must be recovered exactly, in order")
}

func TestNewAccessClaimsLifetime(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	ttl := 22 * time.Minute
	claims := jwtx.NewAccessClaims("a@b.test", "u-1", "", nil, ttl, "iss", now)

	require.Equal(t, ttl, claims.ExpiresAt.Sub(claims.IssuedAt.Time), "exp - iat must equal the configured TTL")
}

func TestNewJTIUniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for range 1000 {
		jti := jwtx.NewJTI()
		_, dup := seen[jti]
		require.False(t, dup, "jti collision")
		seen[jti] = struct{}{}
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{})

	claims := jwtx.NewAccessClaims(
		"a@b.test", "u-1", "", nil,
		time.Minute, "iss", time.Now().UTC().Add(-2*time.Minute),
	)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	claims := jwtx.NewAccessClaims("a@b.test", "u-1", "", nil, time.Minute, "iss", time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	verifier := jwtx.NewVerifierHS256(otherKey, jwtx.VerifyOptions{})

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	t.Parallel()

	verifier := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{})

	t.Run("alg none fails closed", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "a@b.test"})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
	})

	t.Run("HS512 fails closed", func(t *testing.T) {
		other := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "a@b.test"})
		token, err := other.SignedString(testSecret)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
	})
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	verifier := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{})

	for _, input := range []string{"", "garbage", "a.b", strings.Repeat("x.", 40)} {
		_, err := verifier.Verify(input)
		require.ErrorIs(t, err, jwtx.ErrMalformed, "input %q", input)
	}
}

func TestVerifyIssuerMismatch(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	claims := jwtx.NewAccessClaims("a@b.test", "u-1", "", nil, time.Minute, "someone-else", time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: "lattice-auth"})
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestNewSignerHS256RejectsWeakKey(t *testing.T) {
	t.Parallel()

	_, err := jwtx.NewSignerHS256([]byte("too-short"))
	require.ErrorIs(t, err, jwtx.ErrWeakKey)
}

func TestClaimsRoleHelpers(t *testing.T) {
	t.Parallel()

	c := jwtx.Claims{Tenants: testGrants()}

	require.Equal(t, "TENANT_ADMIN", c.RoleIn("t-acme"))
	require.Equal(t, "USER", c.RoleIn("t-globex"))
	require.Empty(t, c.RoleIn("t-unknown"))

	require.True(t, c.HasRole("TENANT_ADMIN"))
	require.True(t, c.HasRole("SUPER_ADMIN", "USER"))
	require.False(t, c.HasRole("SUPER_ADMIN"))
}
