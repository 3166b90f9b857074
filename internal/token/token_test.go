package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef-test"

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer, err := NewIssuer(secret, time.Hour)
	require.NoError(t, err)
	issuer = issuer.WithClock(func() time.Time { return now })

	raw, expiresAt, err := issuer.Issue(12, "manager", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(12), claims.UserID())
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, int64(4), claims.TenantID)
	assert.Equal(t, int64(2), claims.BranchID)
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer, err := NewIssuer(secret, time.Minute)
	require.NoError(t, err)

	raw, _, err := issuer.WithClock(func() time.Time { return now }).Issue(1, "staff", 1, 0)
	require.NoError(t, err)

	later := issuer.WithClock(func() time.Time { return now.Add(2 * time.Minute) })
	_, err = later.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	a, _ := NewIssuer(secret, time.Hour)
	b, _ := NewIssuer("another-secret-of-length", time.Hour)

	raw, _, err := a.Issue(1, "admin", 0, 0)
	require.NoError(t, err)
	_, err = b.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	issuer, _ := NewIssuer(secret, time.Hour)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRejectsShortSecret(t *testing.T) {
	_, err := NewIssuer("short", time.Hour)
	assert.Error(t, err)
}

func TestIssueAssignsUniqueIDs(t *testing.T) {
	issuer, _ := NewIssuer(secret, time.Hour)
	a, _, _ := issuer.Issue(1, "staff", 1, 0)
	b, _, _ := issuer.Issue(1, "staff", 1, 0)

	ca, err := issuer.Verify(a)
	require.NoError(t, err)
	cb, err := issuer.Verify(b)
	require.NoError(t, err)
	assert.NotEmpty(t, ca.ID)
	assert.NotEqual(t, ca.ID, cb.ID)
}
