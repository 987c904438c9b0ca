package service

import (
	"errors"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTokenInvalid means the signature did not verify or the payload is
	// malformed.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired means the signature verified but the token is past
	// its expiry.
	ErrTokenExpired = errors.New("token is expired")
)

// AuthService signs and verifies tokens and wraps the password hash
// primitive. The signing secret is injected once at construction and
// read-only afterwards.
type AuthService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates an AuthService with the given signing secret and
// token lifetimes.
func NewAuthService(secretKey string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), err
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateAccessToken signs a short-lived token for the given user.
func (s *AuthService) GenerateAccessToken(userID int) (string, time.Time, error) {
	return s.generateToken(userID, s.accessTTL)
}

// GenerateRefreshToken signs a long-lived token for the given user. The
// caller is responsible for persisting it so it can be rotated or revoked.
func (s *AuthService) GenerateRefreshToken(userID int) (string, time.Time, error) {
	return s.generateToken(userID, s.refreshTTL)
}

func (s *AuthService) generateToken(userID int, ttl time.Duration) (string, time.Time, error) {
	expirationTime := time.Now().Add(ttl)

	claims := &model.AppClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to sign JWT")
		return "", time.Time{}, fmt.Errorf("failed to sign token string: %w", err)
	}

	return tokenString, expirationTime, nil
}

// ParseToken verifies a token string and returns its claims. It fails with
// ErrTokenExpired when the signature is valid but the expiry has passed,
// and with ErrTokenInvalid for every other verification failure. Callers
// must match these two explicitly to pick the right user-facing message.
func (s *AuthService) ParseToken(tokenString string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
