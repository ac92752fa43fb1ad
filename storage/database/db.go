// Package database connects the gradebook to PostgreSQL and keeps its schema current.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/gradebook/core"
	appfs "github.com/trezcool/gradebook/fs"
)

// MigrationsDir is the directory of the embedded goose migrations.
const MigrationsDir = "migrations"

// Tables lists the tables created by the gradebook migrations.
var Tables = []string{
	"audit_entries",
	"grade_batches",
	"grades",
	"grading_schemes",
	"competencies",
	"classes",
}

func dsn(conf *core.Config, dbName string, admin bool) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	q := make(url.Values)
	q.Set("sslmode", "require")
	if conf.Database.DisableTLS {
		q.Set("sslmode", "disable")
	}
	// grade and audit timestamps are stored and compared in UTC
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open returns a handle on the gradebook database. It does not connect; see Ping.
func Open(conf *core.Config) (*sql.DB, error) {
	return sql.Open(conf.Database.Engine, dsn(conf, conf.Database.Name, false))
}

// Ping waits for the database to be ready, backing off exponentially for up to 30s.
func Ping(db *sql.DB) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 100 * time.Millisecond
	exp.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(db.Ping, exp); err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sql.DB, q string, arg interface{}) (bool, error) {
	var found bool
	if err := db.QueryRow("SELECT EXISTS ("+q+")", arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

// CreateIfNotExist makes sure the gradebook role and database exist.
// The role is created through the admin connection, the database by the role itself so that it owns it.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.User != "" {
		if err := withServer(conf, true, createRole); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	if err := withServer(conf, false, createDatabase); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// withServer runs fn on a connection to the server's maintenance database.
func withServer(conf *core.Config, admin bool, fn func(*sql.DB, *core.Config) error) error {
	db, err := sql.Open(conf.Database.Engine, dsn(conf, "postgres", admin))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = Ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	return fn(db, conf)
}

func createRole(db *sql.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT 1 FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil || found {
		return errors.Wrap(err, "checking app user")
	}
	q := fmt.Sprintf(
		"CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
		pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password),
	)
	_, err = db.Exec(q)
	return err
}

func createDatabase(db *sql.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT 1 FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil || found {
		return errors.Wrap(err, "checking database")
	}
	_, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name))
	return err
}

// Migrate runs a goose command (up, down, status, ...) against the embedded migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	if err := goose.RunFS(command, db, appfs.FS, MigrationsDir, args...); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// Truncate empties every gradebook table, keeping the schema and the goose version.
func Truncate(db core.DBExecutor) error {
	quoted := make([]string, 0, len(Tables))
	for _, t := range Tables {
		quoted = append(quoted, pq.QuoteIdentifier(t))
	}
	if _, err := db.Exec("TRUNCATE " + strings.Join(quoted, ", ")); err != nil {
		return errors.Wrap(err, "truncating tables")
	}
	return nil
}
