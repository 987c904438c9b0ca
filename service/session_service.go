package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("email or password is incorrect")
	ErrEmailTaken          = errors.New("email already registered")
	ErrRefreshTokenInvalid = errors.New("refresh token is invalid")
)

// TokenPair is the access/refresh pair handed to clients on login and on
// every rotation.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is the login payload: the sanitized user plus a fresh
// token pair.
type LoginResponse struct {
	User *model.User `json:"user"`
	TokenPair
}

// SessionService orchestrates login, identity lookup and refresh token
// rotation on top of the token codec and the credential store.
type SessionService struct {
	db        *sql.DB
	userRepo  repository.IUserRepository
	tokenRepo repository.ITokenRepository
	auth      *AuthService
	cache     ICacheClient
}

// NewSessionService wires the session manager. cache may be nil, in which
// case identity lookups always hit the database.
func NewSessionService(db *sql.DB, userRepo repository.IUserRepository, tokenRepo repository.ITokenRepository, auth *AuthService, cache ICacheClient) *SessionService {
	return &SessionService{
		db:        db,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		auth:      auth,
		cache:     cache,
	}
}

// Register hashes the submitted password and persists a new user.
// A duplicate email surfaces as ErrEmailTaken.
func (s *SessionService) Register(req model.RegisterRequest) (*model.User, error) {
	hashedPassword, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := &model.User{
		Email:    req.Email,
		Password: hashedPassword,
		Name:     req.Name,
	}

	if err := s.userRepo.CreateUser(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return user, nil
}

// Login authenticates the credentials and issues a token pair. The refresh
// token is persisted so it can later be rotated or revoked.
func (s *SessionService) Login(req model.LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetUserByEmail(req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !s.auth.CheckPasswordHash(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	accessToken, _, err := s.auth.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExp, err := s.auth.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	record := &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiredAt: refreshExp.Unix(),
	}
	if err := s.tokenRepo.Create(record); err != nil {
		// The pair only exists in memory at this point, so failing hard
		// leaves no orphaned session behind.
		return nil, fmt.Errorf("could not persist refresh token: %w", err)
	}

	logger.Log.WithField("user_id", user.ID).Info("User logged in")

	return &LoginResponse{
		User: user,
		TokenPair: TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	}, nil
}

// WhoAmI resolves the authenticated user by id, utilizing a cache-aside
// strategy. User records are immutable after registration, so cached
// entries never need invalidation, only expiry.
func (s *SessionService) WhoAmI(ctx context.Context, userID int) (*model.User, error) {
	cacheKey := fmt.Sprintf("users:%d", userID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var user model.User
			if err := json.Unmarshal([]byte(cached), &user); err == nil {
				return &user, nil
			}
		}
	}

	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		// The password hash carries a `json:"-"` tag, so it never enters
		// the cache.
		if data, err := json.Marshal(user); err == nil {
			s.cache.Set(ctx, cacheKey, data, 10*time.Minute)
		}
	}

	return user, nil
}

// Refresh rotates a refresh token: it verifies the submitted token, loads
// the matching record, and replaces it with a successor in a single
// database transaction. Verification failures keep their type (invalid vs
// expired) so the handler can answer with the right message.
func (s *SessionService) Refresh(ctx context.Context, tokenStr string) (*TokenPair, error) {
	claims, err := s.auth.ParseToken(tokenStr)
	if err != nil {
		return nil, err // ErrTokenInvalid or ErrTokenExpired
	}

	record, err := s.tokenRepo.GetByToken(tokenStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, err
	}

	if record.Revoked {
		logger.Log.WithField("user_id", record.UserID).Warn("Refresh attempt with a revoked token")
		return nil, ErrRefreshTokenInvalid
	}
	if record.UserID != claims.UserID {
		return nil, ErrRefreshTokenInvalid
	}

	newRefreshToken, refreshExp, err := s.auth.GenerateRefreshToken(record.UserID)
	if err != nil {
		return nil, err
	}

	// Insert the successor and delete the predecessor in one transaction.
	// The delete is keyed on the record id: if a concurrent rotation of
	// the same token already removed it, zero rows come back and this
	// attempt loses, so two rotations can never both win.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	successor := &model.RefreshToken{
		UserID:    record.UserID,
		Token:     newRefreshToken,
		ExpiredAt: refreshExp.Unix(),
	}
	if err := s.tokenRepo.CreateTx(tx, successor); err != nil {
		return nil, fmt.Errorf("could not create rotated refresh token: %w", err)
	}

	rows, err := s.tokenRepo.DeleteTx(tx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("could not delete rotated refresh token: %w", err)
	}
	if rows == 0 {
		return nil, ErrRefreshTokenInvalid
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit rotation: %w", err)
	}

	accessToken, _, err := s.auth.GenerateAccessToken(record.UserID)
	if err != nil {
		return nil, err
	}

	logger.Log.WithField("user_id", record.UserID).Info("Refresh token rotated")

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}
