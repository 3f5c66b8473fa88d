package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes password, inserts the user and sets u.ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Email = NormalizeEmail(u.Email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, is_staff, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)`,
		u.Email, hash, u.FirstName, u.LastName, u.IsStaff, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.PasswordHash = hash
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

const userColumns = "id,email,password_hash,first_name,last_name,is_staff,created_at,updated_at"

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateProfile stores names and, when password is non-empty, a new
// password hash.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User, password string, cost int) error {
	if password != "" {
		hash, err := utils.HashPassword(password, cost)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?, last_name=?, password_hash=?, updated_at=? WHERE id=?",
		u.FirstName, u.LastName, u.PasswordHash, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetStaff grants or revokes the staff flag.
func (r *UserRepo) SetStaff(ctx context.Context, id uint64, staff bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_staff=?, updated_at=? WHERE id=?", staff, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
