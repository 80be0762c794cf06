package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    username VARCHAR(100) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    password TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const sqliteSchema = `CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    created_at TEXT NOT NULL
)`

// SQLUserRepository stores accounts in PostgreSQL or SQLite
type SQLUserRepository struct {
	db     *sql.DB
	driver string
}

// OpenUsers connects to the database named by driver and ensures the users
// table exists. dsn is a postgres URL or a SQLite file path.
func OpenUsers(ctx context.Context, driver, dsn string) (*SQLUserRepository, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverPostgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(time.Hour)
	case DriverSQLite:
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	repo := &SQLUserRepository{db: db, driver: driver}
	if err := repo.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLUserRepository) initSchema(ctx context.Context) error {
	schema := sqliteSchema
	if r.driver == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *SQLUserRepository) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// CreateUser inserts a new account. A duplicate email yields ErrUserExists.
func (r *SQLUserRepository) CreateUser(ctx context.Context, user *User) (*User, error) {
	created := *user
	created.CreatedAt = time.Now().UTC()

	if r.driver == DriverPostgres {
		err := r.db.QueryRowContext(ctx,
			r.rebind(`INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
			user.Username, user.Email, user.PasswordHash, created.CreatedAt,
		).Scan(&created.ID)
		if err != nil {
			return nil, r.translate(err)
		}
		return &created, nil
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, created.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, r.translate(err)
	}
	if created.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("read user id: %w", err)
	}
	return &created, nil
}

// GetByUsername returns the first account registered under username.
func (r *SQLUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, `SELECT id, username, email, password, created_at FROM users WHERE username = ? ORDER BY id LIMIT 1`, username)
}

// GetByEmail returns the account registered with email.
func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT id, username, email, password, created_at FROM users WHERE email = ?`, email)
}

func (r *SQLUserRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var (
		u       User
		created any
	)
	err := r.db.QueryRowContext(ctx, r.rebind(query), arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, r.translate(err)
	}
	u.CreatedAt = parseTimestamp(created)
	return &u, nil
}

func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	case []byte:
		if parsed, err := time.Parse(time.RFC3339Nano, string(t)); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Ping verifies the database connection.
func (r *SQLUserRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *SQLUserRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLUserRepository) translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUserExists
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return ErrUserExists
	}
	return err
}
