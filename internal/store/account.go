package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicate is returned when a unique column already holds the value.
var ErrDuplicate = errors.New("duplicate")

// CreateAccount inserts a new account. Returns ErrDuplicate if the email is taken.
func (db *DB) CreateAccount(a *Account) error {
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`INSERT INTO accounts (uid, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		a.UID, a.Email, a.PasswordHash, a.CreatedAt)
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicate
	}
	return err
}

// AccountByEmail returns the account for email (case-insensitive), or nil.
func (db *DB) AccountByEmail(email string) (*Account, error) {
	var a Account
	err := db.QueryRow(`SELECT uid, email, password_hash, created_at FROM accounts WHERE email = ?`, email).
		Scan(&a.UID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountByUID returns the account with the given uid, or nil.
func (db *DB) AccountByUID(uid string) (*Account, error) {
	var a Account
	err := db.QueryRow(`SELECT uid, email, password_hash, created_at FROM accounts WHERE uid = ?`, uid).
		Scan(&a.UID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
