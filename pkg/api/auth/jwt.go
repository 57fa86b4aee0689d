package auth

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/tauraamui/xerror"
)

const (
	audience      = "idlesqueeze"
	tokenLifetime = time.Hour
)

var (
	ErrExpired          = errors.New("auth token has expired")
	ErrUnexpectedMethod = errors.New("unexpected signing method")
)

type customClaims struct {
	UserUUID string `json:"useruuid"`
	jwt.StandardClaims
}

var timeNow = func() time.Time {
	return time.Now()
}

func GenToken(secret, userUUID string) (string, error) {
	claims := customClaims{
		UserUUID: userUUID,
		StandardClaims: jwt.StandardClaims{
			Audience:  audience,
			IssuedAt:  timeNow().UTC().Unix(),
			ExpiresAt: timeNow().UTC().Add(tokenLifetime).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken returns the user UUID carried by tokenString.
func ValidateToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&customClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, xerror.Errorf("%w: %v", ErrUnexpectedMethod, token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)

	if err != nil {
		return "", xerror.Errorf("unable to validate token: %w", err)
	}

	return checkClaims(token.Claims)
}

func checkClaims(claims jwt.Claims) (string, error) {
	cc, ok := claims.(*customClaims)
	if !ok {
		return "", errors.New("unable to parse claims")
	}

	if cc.ExpiresAt < timeNow().UTC().Unix() {
		return "", ErrExpired
	}

	if !cc.VerifyAudience(audience, true) {
		return "", errors.New("auth token audience mismatch")
	}

	return cc.UserUUID, nil
}
