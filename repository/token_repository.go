// file: repository/token_repository.go

package repository

import (
	"database/sql"
	"go-auth-api/logger"
	"go-auth-api/model"

	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for refresh token database operations.
type ITokenRepository interface {
	Create(token *model.RefreshToken) error
	GetByToken(token string) (*model.RefreshToken, error)
	CreateTx(tx *sql.Tx, token *model.RefreshToken) error
	DeleteTx(tx *sql.Tx, id int) (int64, error)
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct {
	DB *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

// Create inserts a new refresh token record into the database.
func (r *TokenRepository) Create(token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"expired_at": token.ExpiredAt,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (user_id, token, expired_at) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.DB.QueryRow(query, token.UserID, token.Token, token.ExpiredAt).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// GetByToken retrieves a refresh token record by its signed string value,
// joined with the owning user.
func (r *TokenRepository) GetByToken(tokenStr string) (*model.RefreshToken, error) {
	log := logger.Log
	log.Info("Executing query to get refresh token by value")

	token := &model.RefreshToken{User: &model.User{}}
	query := `
		SELECT rt.id, rt.user_id, rt.token, rt.expired_at, rt.revoked, rt.created_at,
		       u.id, u.email, u.password, u.name, u.created_at
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.user_id
		WHERE rt.token = $1`
	err := r.DB.QueryRow(query, tokenStr).Scan(
		&token.ID, &token.UserID, &token.Token, &token.ExpiredAt, &token.Revoked, &token.CreatedAt,
		&token.User.ID, &token.User.Email, &token.User.Password, &token.User.Name, &token.User.CreatedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get refresh token query")
		}
		return nil, err // Return sql.ErrNoRows if not found
	}
	return token, nil
}

// CreateTx inserts a refresh token record inside an existing transaction.
// Used by the rotation flow so the successor insert and predecessor delete
// commit or roll back together.
func (r *TokenRepository) CreateTx(tx *sql.Tx, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"expired_at": token.ExpiredAt,
	})
	log.Info("Executing transactional insert of rotated refresh token")

	query := `INSERT INTO refresh_tokens (user_id, token, expired_at) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := tx.QueryRow(query, token.UserID, token.Token, token.ExpiredAt).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute transactional create refresh token query")
		return err
	}
	return nil
}

// DeleteTx deletes a refresh token record by id inside an existing
// transaction and reports how many rows were removed. Zero rows means the
// record was already rotated or reaped by a concurrent request.
func (r *TokenRepository) DeleteTx(tx *sql.Tx, id int) (int64, error) {
	log := logger.Log.WithField("refresh_token_id", id)
	log.Info("Executing transactional delete of refresh token")

	res, err := tx.Exec(`DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute delete refresh token query")
		return 0, err
	}
	return res.RowsAffected()
}
