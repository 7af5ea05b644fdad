// Package userdb stores user accounts and their authorities in SQL and
// checks presented credentials against bcrypt password hashes.
package userdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"blogpost/config"
	"blogpost/domain"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Second admin account, created when a pre-encoded password is configured.
const encodedAdminUsername = "admin2"

type DB struct {
	db   *sql.DB
	log  *zap.Logger
	cost int
}

// Open connects to the credential database and migrates it to the latest
// schema. driver is "sqlite" or "pgx".
func Open(ctx context.Context, driver, dsn string, log *zap.Logger) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// in-memory databases only live as long as their connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := runMigrations(db, driver, log); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db, log: log, cost: bcrypt.DefaultCost}, nil
}

func runMigrations(db *sql.DB, driver string, log *zap.Logger) error {
	var (
		instance database.Driver
		err      error
	)
	switch driver {
	case "sqlite":
		instance, err = sqlite.WithInstance(db, &sqlite.Config{})
	case "pgx":
		instance, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, driver, instance)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("credential schema already at latest version")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}
	log.Info("credential schema migrated")
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// CreateUser inserts or replaces a user and its roles. passwordHash must
// already be a bcrypt hash.
func (d *DB) CreateUser(ctx context.Context, username, passwordHash string, roles []string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error in begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO users (username, password, enabled) VALUES ($1, $2, $3)
        ON CONFLICT (username) DO UPDATE SET password = excluded.password, enabled = excluded.enabled`,
		username, passwordHash, true)
	if err != nil {
		return fmt.Errorf("error upserting user %s: %w", username, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM authorities WHERE username = $1", username); err != nil {
		return fmt.Errorf("error clearing authorities of %s: %w", username, err)
	}
	for _, role := range roles {
		_, err = tx.ExecContext(ctx, "INSERT INTO authorities (username, authority) VALUES ($1, $2)", username, domain.Authority(role))
		if err != nil {
			return fmt.Errorf("error adding authority to %s: %w", username, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error in commit transaction: %w", err)
	}
	return nil
}

// SetEnabled enables or disables a user without touching its password.
func (d *DB) SetEnabled(ctx context.Context, username string, enabled bool) error {
	res, err := d.db.ExecContext(ctx, "UPDATE users SET enabled = $1 WHERE username = $2", enabled, username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s does not exist", username)
	}
	return nil
}

// Seed creates the configured administrator accounts.
func (d *DB) Seed(ctx context.Context, admin config.AdminConfig) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.Password), d.cost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	if err := d.CreateUser(ctx, admin.Username, string(hashed), admin.Roles); err != nil {
		return err
	}
	d.log.Info("seeded admin user", zap.String("username", admin.Username), zap.Strings("roles", admin.Roles))

	if admin.EncodedPassword == "" {
		return nil
	}
	encoded := strings.TrimPrefix(admin.EncodedPassword, "{bcrypt}")
	if _, err := bcrypt.Cost([]byte(encoded)); err != nil {
		return fmt.Errorf("encoded admin password is not a bcrypt hash: %w", err)
	}
	if err := d.CreateUser(ctx, encodedAdminUsername, encoded, admin.Roles); err != nil {
		return err
	}
	d.log.Info("seeded admin user", zap.String("username", encodedAdminUsername), zap.Strings("roles", admin.Roles))
	return nil
}

// Authenticate checks cred and returns the matching principal with its
// authorities. Unknown users, disabled users and wrong passwords all yield
// domain.ErrBadCredentials.
func (d *DB) Authenticate(ctx context.Context, cred domain.Credential) (domain.Principal, error) {
	if cred.Username == "" || cred.Password == "" {
		return domain.Anonymous(), domain.ErrBadCredentials
	}

	var (
		storedPassword string
		enabled        bool
	)
	row := d.db.QueryRowContext(ctx, "SELECT password, enabled FROM users WHERE username = $1", cred.Username)
	if err := row.Scan(&storedPassword, &enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Anonymous(), domain.ErrBadCredentials
		}
		return domain.Anonymous(), fmt.Errorf("looking up user: %w", err)
	}
	if !enabled {
		return domain.Anonymous(), domain.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedPassword), []byte(cred.Password)); err != nil {
		return domain.Anonymous(), domain.ErrBadCredentials
	}

	roles, err := d.authorities(ctx, cred.Username)
	if err != nil {
		return domain.Anonymous(), err
	}
	return domain.Principal{Username: cred.Username, Roles: roles}, nil
}

// Lookup returns the principal for an enabled user without checking a
// password. Unknown and disabled users yield domain.ErrBadCredentials.
func (d *DB) Lookup(ctx context.Context, username string) (domain.Principal, error) {
	if username == "" {
		return domain.Anonymous(), domain.ErrBadCredentials
	}
	var enabled bool
	row := d.db.QueryRowContext(ctx, "SELECT enabled FROM users WHERE username = $1", username)
	if err := row.Scan(&enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Anonymous(), domain.ErrBadCredentials
		}
		return domain.Anonymous(), fmt.Errorf("looking up user: %w", err)
	}
	if !enabled {
		return domain.Anonymous(), domain.ErrBadCredentials
	}
	roles, err := d.authorities(ctx, username)
	if err != nil {
		return domain.Anonymous(), err
	}
	return domain.Principal{Username: username, Roles: roles}, nil
}

func (d *DB) authorities(ctx context.Context, username string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT authority FROM authorities WHERE username = $1 ORDER BY authority", username)
	if err != nil {
		return nil, fmt.Errorf("looking up authorities: %w", err)
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		roles = append(roles, a)
	}
	return roles, rows.Err()
}
