package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sina1864/EChat/internal/presence"
)

// normUsername trims and lowercases the username so lookups are stable
func normUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// CreateUser inserts a new account with a hashed password. A blank avatar
// gets the stock one.
func (p *Postgres) CreateUser(ctx context.Context, username, fullName, avatar, password string) (User, error) {
	username = normUsername(username)
	if username == "" || password == "" {
		return User{}, errors.New("missing username or password")
	}
	if avatar == "" {
		avatar = "avatar1.png"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (username, full_name, avatar, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, full_name, avatar, created_at
	`, username, fullName, avatar, string(hash))

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Avatar, &u.CreatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUserByUsername returns the user + hashed password for login verification
func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (User, string, error) {
	username = normUsername(username)

	row := p.pool.QueryRow(ctx, `
		SELECT id, username, full_name, avatar, password_hash, created_at
		FROM users
		WHERE username = $1
	`, username)

	var u User
	var hash string
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Avatar, &hash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, "", ErrNotFound
		}
		return User{}, "", err
	}
	return u, hash, nil
}

// VerifyUser checks username + password match
func (p *Postgres) VerifyUser(ctx context.Context, username, password string) (User, error) {
	u, hash, err := p.GetUserByUsername(ctx, username)
	if err != nil {
		return User{}, errors.New("invalid credentials")
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, errors.New("invalid credentials")
	}

	return u, nil
}

// GetByIdentity supplies the presence core's profile snapshot for a
// connecting identity. Satisfies presence.ProfileLookup.
func (p *Postgres) GetByIdentity(ctx context.Context, identity string) (presence.ProfileSnapshot, error) {
	u, _, err := p.GetUserByUsername(ctx, identity)
	if err != nil {
		return presence.ProfileSnapshot{}, err
	}
	return presence.ProfileSnapshot{
		Identity: u.Username,
		FullName: u.FullName,
		Avatar:   u.Avatar,
	}, nil
}
