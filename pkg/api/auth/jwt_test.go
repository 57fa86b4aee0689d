package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/matryer/is"
	"github.com/tauraamui/idlesqueeze/pkg/api/auth"
)

const testSecret = "test-signing-secret"

func TestGenTokenRoundTripsUserUUID(t *testing.T) {
	is := is.New(t)

	token, err := auth.GenToken(testSecret, "user-uuid-1")
	is.NoErr(err)
	is.Equal(len(strings.Split(token, ".")), 3)

	uuid, err := auth.ValidateToken(testSecret, token)
	is.NoErr(err)
	is.Equal(uuid, "user-uuid-1")
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	is := is.New(t)

	token, err := auth.GenToken(testSecret, "user-uuid-1")
	is.NoErr(err)

	_, err = auth.ValidateToken("another-secret", token)
	is.True(err != nil)
	is.True(strings.HasPrefix(err.Error(), "unable to validate token"))
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	is := is.New(t)

	issued := time.Now().Add(-2 * time.Hour)
	reset := auth.OverloadTimeNow(func() time.Time { return issued })
	token, err := auth.GenToken(testSecret, "user-uuid-1")
	reset()
	is.NoErr(err)

	_, err = auth.ValidateToken(testSecret, token)
	is.True(err != nil)
}

func TestValidateTokenRejectsNoneAlgorithm(t *testing.T) {
	is := is.New(t)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, auth.NewCustomClaims("user-uuid-1", time.Now().Add(time.Hour).Unix()))
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	is.NoErr(err)

	_, err = auth.ValidateToken(testSecret, signed)
	is.True(err != nil)
}

func TestCheckClaimsExpired(t *testing.T) {
	is := is.New(t)

	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	defer auth.OverloadTimeNow(func() time.Time { return now })()

	_, err := auth.CheckClaims(auth.NewCustomClaims("user-uuid-1", now.Add(-time.Minute).Unix()))
	is.Equal(err, auth.ErrExpired)

	uuid, err := auth.CheckClaims(auth.NewCustomClaims("user-uuid-1", now.Add(time.Minute).Unix()))
	is.NoErr(err)
	is.Equal(uuid, "user-uuid-1")
}

func TestCheckClaimsWrongType(t *testing.T) {
	is := is.New(t)

	_, err := auth.CheckClaims(jwt.MapClaims{})
	is.True(err != nil)
	is.Equal(err.Error(), "unable to parse claims")
}
