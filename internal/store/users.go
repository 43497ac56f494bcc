package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"
)

// Default roles. Only RoleAdmin may upload attachments by default.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// User is a registered console user.
type User struct {
	ID          int64
	FullName    string
	Email       string
	CompanyCode string
	Role        string
	CreatedAt   time.Time
}

// NewUser is the input to CreateUser.
type NewUser struct {
	FullName    string
	Email       string
	Password    string
	CompanyCode string
	Role        string
}

// CreateUser registers a user with a bcrypt password hash. Email matching is
// case-insensitive; a taken email returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u NewUser) (*User, error) {
	if u.Role == "" {
		u.Role = RoleUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, eris.Wrap(err, "hash password")
	}

	created := s.now().UTC()
	email := strings.TrimSpace(u.Email)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (full_name, email, password_hash, company_code, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.FullName, email, hash, u.CompanyCode, u.Role, created)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(ErrConflict, "user %s", email)
		}
		return nil, eris.Wrap(err, "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "user id")
	}
	return &User{
		ID:          id,
		FullName:    u.FullName,
		Email:       email,
		CompanyCode: u.CompanyCode,
		Role:        u.Role,
		CreatedAt:   created,
	}, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords both return ErrInvalidLogin.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var u User
	var hash []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, password_hash, company_code, role, created_at
		FROM users WHERE email = ?`,
		strings.TrimSpace(email),
	).Scan(&u.ID, &u.FullName, &u.Email, &hash, &u.CompanyCode, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, eris.Wrap(err, "find user")
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}
	return &u, nil
}

// CreateSession issues a random session token for a user, valid for ttl.
func (s *Store) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(ttl))
	if err != nil {
		return "", eris.Wrap(err, "create session")
	}
	return token, nil
}

// SessionUser returns the user owning an unexpired session token, or
// ErrNotFound.
func (s *Store) SessionUser(ctx context.Context, token string) (*User, error) {
	var u User
	var expires time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.full_name, u.email, u.company_code, u.role, u.created_at, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`,
		token,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.CompanyCode, &u.Role, &u.CreatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "session")
	}
	if err != nil {
		return nil, eris.Wrap(err, "find session")
	}
	if !s.now().Before(expires) {
		return nil, eris.Wrap(ErrNotFound, "session expired")
	}
	return &u, nil
}

// DeleteSession removes a session token. Unknown tokens are ignored.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return eris.Wrap(err, "delete session")
	}
	return nil
}

// PurgeExpiredSessions deletes sessions past their expiry and returns how
// many were removed.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "purge sessions")
	}
	return res.RowsAffected()
}

// EnsureUser creates the user unless the email is already registered. It
// reports whether a user was created.
func (s *Store) EnsureUser(ctx context.Context, u NewUser) (bool, error) {
	_, err := s.CreateUser(ctx, u)
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
