package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssueVerify(t *testing.T) {
	tk := NewTokens("s3cret")
	raw, err := tk.Issue("dealer-1", "North Bikes", time.Hour)
	require.NoError(t, err)

	id, err := tk.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "dealer-1", id)
}

func TestVerifyRejects(t *testing.T) {
	tk := NewTokens("s3cret")

	expired, err := tk.Issue("dealer-1", "", -time.Minute)
	require.NoError(t, err)
	_, err = tk.Verify(expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokens("other").Issue("dealer-1", "", time.Hour)
	require.NoError(t, err)
	_, err = tk.Verify(other)
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tk.Verify(none)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = tk.Verify("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}
