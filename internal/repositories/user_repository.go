package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/JDEditz/Messaging-Web-App/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository exposes the presence-relevant slice of the users collection.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	GetUsersByIDs(ctx context.Context, ids []int) ([]models.UserSummary, error)
	SetOnline(ctx context.Context, userID int, online bool) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, is_online, last_seen FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUsersByIDs fetches summaries for a set of user ids in one query.
func (r *UserRepo) GetUsersByIDs(ctx context.Context, ids []int) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}

	query, args, err := sqlx.In(`SELECT id, username, is_online FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var users []models.UserSummary
	err = r.db.SelectContext(ctx, &users, query, args...)
	return users, err
}

// SetOnline flips the online flag and refreshes last_seen.
func (r *UserRepo) SetOnline(ctx context.Context, userID int, online bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_online=$2, last_seen=NOW() WHERE id=$1`, userID, online)
	return err
}
