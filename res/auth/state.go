package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// The state parameter round-trips through the provider redirect; signing
// it (instead of persisting it) keeps the login flow stateless while still
// rejecting forged or replayed-late callbacks.

type stateClaims struct {
	jwt.StandardClaims

	Nonce string `json:"nonce"`
}

func makeStateToken(secret string) (string, error) {
	now := time.Now()
	token := jwt.New(jwt.SigningMethodHS256)

	token.Claims = stateClaims{
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Duration(StateLifespanInMinutes) * time.Minute).Unix(),
		},
		Nonce: uuid.NewString(),
	}

	str, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}
	return str, nil
}

func verifyStateToken(secret, state string) error {
	var claims stateClaims
	t, err := jwt.ParseWithClaims(state, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !t.Valid {
		return errors.New("invalid state token")
	}

	return nil
}
