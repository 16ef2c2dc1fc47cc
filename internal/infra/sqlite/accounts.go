package sqlite

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/reminisce-ai/reminisce/internal/domain"
)

// ─── Account Operations ─────────────────────────────────────────────────────

// CreateAccount inserts a new account with a starting balance and writes the
// grant to the journal. It fails with domain.ErrDuplicateUsername when the
// username is taken.
func (db *DB) CreateAccount(username, passwordHash string, startingCredits int64) (*domain.Account, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO accounts (username, password_hash, credits)
		VALUES (?, ?, ?)
	`, username, passwordHash, startingCredits)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateUsername
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if startingCredits > 0 {
		_, err = tx.Exec(`
			INSERT INTO credit_ledger (account, tx_type, delta, description, balance)
			VALUES (?, ?, ?, 'starting balance', ?)
		`, username, domain.TxGrant, startingCredits, startingCredits)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:        id,
		Username:  username,
		Credits:   startingCredits,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// GetAccount looks up an account by username.
func (db *DB) GetAccount(username string) (*domain.Account, error) {
	var (
		a          domain.Account
		hash       string
		activeInt  int
		createdStr string
	)
	err := db.db.QueryRow(`
		SELECT id, username, password_hash, credits, is_active, created_at
		FROM accounts WHERE username = ?
	`, username).Scan(&a.ID, &a.Username, &hash, &a.Credits, &activeInt, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	a.PasswordHash = hash
	a.IsActive = activeInt == 1
	a.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdStr)
	return &a, nil
}

// GetBalance returns the current credit balance for an account.
func (db *DB) GetBalance(username string) (int64, error) {
	var credits int64
	err := db.db.QueryRow(`SELECT credits FROM accounts WHERE username = ?`, username).Scan(&credits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrAccountNotFound
	}
	return credits, err
}

// AdjustBalance applies delta to an account's balance and journals the
// change. The UPDATE is conditional on the result staying non-negative, so
// two concurrent debits of the last credit serialize inside SQLite: one
// wins, the other gets domain.ErrInsufficientCredits with no change.
func (db *DB) AdjustBalance(username string, delta int64, txType domain.TransactionType, description string) (int64, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE accounts SET credits = credits + ?
		WHERE username = ? AND credits + ? >= 0
	`, delta, username, delta)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Distinguish "no such account" from "would go negative".
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM accounts WHERE username = ?`, username).Scan(&exists); err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, domain.ErrAccountNotFound
		}
		return 0, domain.ErrInsufficientCredits
	}

	var balance int64
	if err := tx.QueryRow(`SELECT credits FROM accounts WHERE username = ?`, username).Scan(&balance); err != nil {
		return 0, err
	}

	_, err = tx.Exec(`
		INSERT INTO credit_ledger (account, tx_type, delta, description, balance)
		VALUES (?, ?, ?, ?, ?)
	`, username, txType, delta, description, balance)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

// LedgerEntries returns the most recent journal rows for an account,
// newest first.
func (db *DB) LedgerEntries(username string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := db.db.Query(`
		SELECT id, account, tx_type, delta, description, balance, created_at
		FROM credit_ledger WHERE account = ?
		ORDER BY id DESC LIMIT ?
	`, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e          domain.LedgerEntry
			txType     string
			createdStr string
		)
		if err := rows.Scan(&e.ID, &e.Account, &txType, &e.Delta, &e.Description, &e.Balance, &createdStr); err != nil {
			return nil, err
		}
		e.Type = domain.TransactionType(txType)
		e.Timestamp, _ = time.Parse("2006-01-02 15:04:05", createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
// modernc.org/sqlite surfaces these as "constraint failed: UNIQUE ...".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

var _ domain.LedgerStore = (*DB)(nil)
