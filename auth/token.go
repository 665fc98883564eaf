package auth

import (
	"fmt"
	"planning-poker/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "planning-poker"

// RejoinClaims is what the shareable room URL carries so a participant can
// come back to the same seat from another browser.
type RejoinClaims struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and checks rejoin tokens with HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for userID in roomID. A zero ttl means the token
// never expires.
func (i *TokenIssuer) Issue(roomID, userID string) (string, error) {
	now := i.now()
	claims := RejoinClaims{
		RoomID: roomID,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing rejoin token: %w", err)
	}
	return signed, nil
}

// Parse checks signature, issuer and expiry. Any failure is reported as
// ErrInvalidRejoinToken, the cause is not exposed to the participant.
func (i *TokenIssuer) Parse(token string) (RejoinClaims, error) {
	var claims RejoinClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid || claims.RoomID == "" || claims.UserID == "" {
		return RejoinClaims{}, errors.ErrInvalidRejoinToken
	}
	return claims, nil
}
