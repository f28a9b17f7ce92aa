package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "fleet-equipment-api"

type JWTUtil struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func NewJWTUtil(secret string, expiry time.Duration) *JWTUtil {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &JWTUtil{
		secretKey: []byte(secret),
		expiry:    expiry,
		now:       time.Now,
	}
}

// Expiry is the lifetime of newly issued tokens.
func (j *JWTUtil) Expiry() time.Duration {
	return j.expiry
}

func (j *JWTUtil) GenerateToken(userID, email, role string) (string, error) {
	now := j.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

func (j *JWTUtil) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(j.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func (j *JWTUtil) RefreshToken(tokenString string) (string, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}

	// still valid for more than an hour, keep it
	if claims.ExpiresAt.Time.Sub(j.now()) > time.Hour {
		return tokenString, nil
	}

	return j.GenerateToken(claims.UserID, claims.Email, claims.Role)
}
