// Package storage implements the store ports on a local SQLite database.
// It is the self-hosted alternative to the Supabase backend: credentials
// live in the accounts table (bcrypt hashes) and access tokens are signed
// JWTs instead of GoTrue sessions.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"caixa/internal/core"
	"caixa/internal/store"
)

const tokenTTL = 24 * time.Hour

type SQLiteStore struct {
	db        *sql.DB
	jwtSecret []byte
}

func NewSQLiteStore(dbPath string, jwtSecret []byte) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, jwtSecret: jwtSecret}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SeedAdmin inserts an administrator account unless the email is taken.
func (s *SQLiteStore) SeedAdmin(ctx context.Context, email, password, name string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check admin account: %w", err)
	}
	if exists > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, nome, approved, role) VALUES (?, ?, ?, ?, 1, ?)`,
		uuid.NewString(), email, string(hash), name, core.RoleAdmin)
	if err != nil {
		return fmt.Errorf("insert admin account: %w", err)
	}
	slog.InfoContext(ctx, "Admin account seeded", "email", email)
	return nil
}

func (s *SQLiteStore) SignUp(ctx context.Context, p store.SignUpParams) (*core.Profile, store.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, store.Session{}, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, nome, empresa, celular, role) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.Email, string(hash), p.Name, p.Company, p.Phone, core.RoleUser)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.Session{}, store.ErrEmailTaken
		}
		return nil, store.Session{}, fmt.Errorf("insert account: %w", err)
	}

	prof := core.Profile{
		ID:      id,
		Email:   p.Email,
		Name:    p.Name,
		Company: p.Company,
		Phone:   p.Phone,
		Role:    core.RoleUser,
	}
	sess, err := s.newSession(id)
	if err != nil {
		return nil, store.Session{}, err
	}
	return &prof, sess, nil
}

func (s *SQLiteStore) SignIn(ctx context.Context, email, password string) (*core.Profile, store.Session, error) {
	var (
		prof core.Profile
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, nome, empresa, celular, approved, paused, role
		 FROM accounts WHERE email = ?`, email).
		Scan(&prof.ID, &prof.Email, &hash, &prof.Name, &prof.Company, &prof.Phone,
			&prof.Approved, &prof.Paused, &prof.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.Session{}, store.ErrInvalidCredentials
	}
	if err != nil {
		return nil, store.Session{}, fmt.Errorf("query account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, store.Session{}, store.ErrInvalidCredentials
	}

	sess, err := s.newSession(prof.ID)
	if err != nil {
		return nil, store.Session{}, err
	}
	return &prof, sess, nil
}

func (s *SQLiteStore) SignOut(context.Context, store.Session) error {
	// Tokens are stateless; nothing to revoke server-side.
	return nil
}

func (s *SQLiteStore) CurrentUser(ctx context.Context, sess store.Session) (*core.Profile, error) {
	userID, err := s.verifyToken(sess.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidCredentials, err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, nome, empresa, celular, approved, paused, role
		 FROM accounts ORDER BY nome COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Profile
	for rows.Next() {
		var p core.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.Company, &p.Phone,
			&p.Approved, &p.Paused, &p.Role); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*core.Profile, error) {
	var p core.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, nome, empresa, celular, approved, paused, role
		 FROM accounts WHERE id = ?`, id).
		Scan(&p.ID, &p.Email, &p.Name, &p.Company, &p.Phone, &p.Approved, &p.Paused, &p.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return &p, nil
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, id string, u store.ProfileUpdate) error {
	sets := []string{}
	args := []any{}
	if u.Approved != nil {
		sets = append(sets, "approved = ?")
		args = append(args, *u.Approved)
	}
	if u.Paused != nil {
		sets = append(sets, "paused = ?")
		args = append(args, *u.Paused)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update account %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Account deleted", "id", id)
	return nil
}

func (s *SQLiteStore) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE approved = 0 AND role != ?`, core.RoleAdmin).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending accounts: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string, start, end core.Date) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, type, description, amount_cents, date, created_at
		 FROM transactions
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC, created_at DESC`,
		userID, string(start), string(end))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx      core.Transaction
			txType  string
			txDate  string
			created time.Time
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &txType, &tx.Description,
			&tx.Amount.Cents, &txDate, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TransactionType(txType)
		tx.Date = core.Date(txDate)
		tx.CreatedAt = created
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertTransaction(ctx context.Context, p store.TransactionParams) (core.Transaction, error) {
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		Type:        p.Type,
		Description: p.Description,
		Amount:      p.Amount,
		Date:        p.Date,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, type, description, amount_cents, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.Type), tx.Description, tx.Amount.Cents, string(tx.Date), tx.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"type", string(tx.Type),
		"amount_cents", tx.Amount.Cents,
		"date", string(tx.Date))
	return tx, nil
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) newSession(userID string) (store.Session, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return store.Session{}, fmt.Errorf("sign access token: %w", err)
	}
	return store.Session{UserID: userID, AccessToken: signed}, nil
}

func (s *SQLiteStore) verifyToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid access token")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("missing subject claim")
	}
	return sub, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
