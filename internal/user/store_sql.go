package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bandmaster/bandmaster/internal/apperr"
)

type Store interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByLogin(ctx context.Context, login string) (User, error)
	Create(ctx context.Context, u User) (User, error)
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) FindByID(ctx context.Context, id string) (User, error) {
	return s.findOne(ctx, `SELECT id,login,password_hash,role,balance,first_name,last_name,phone,city,created_at
		FROM users WHERE id=$1`, id)
}

func (s *SQLStore) FindByLogin(ctx context.Context, login string) (User, error) {
	return s.findOne(ctx, `SELECT id,login,password_hash,role,balance,first_name,last_name,phone,city,created_at
		FROM users WHERE login=$1`, login)
}

func (s *SQLStore) findOne(ctx context.Context, query, arg string) (User, error) {
	var u User
	var p Profile
	row := s.db.QueryRowContext(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Role, &u.Balance,
		&p.FirstName, &p.LastName, &p.Phone, &p.City, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, err
	}
	if p != (Profile{}) {
		u.Profile = &p
	}
	return u, nil
}

func (s *SQLStore) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	u.CreatedAt = time.Now().Unix()
	p := u.Profile
	if p == nil {
		p = &Profile{}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users
		(id,login,password_hash,role,balance,first_name,last_name,phone,city,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Login, u.PasswordHash, u.Role, u.Balance,
		p.FirstName, p.LastName, p.Phone, p.City, u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}
