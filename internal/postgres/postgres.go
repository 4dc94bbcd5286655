// Package postgres renders the provisioning SQL and connection strings for
// the service databases. Everything here is pure string work plus a small
// connectivity probe; no connection pooling or schema management.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// ServiceDB names one role/database pair owned by a service, with the
// password the role is created with.
type ServiceDB struct {
	Role     string
	Password string
	Database string
}

// InitScript renders the initdb SQL creating each service's role and
// database, in the order given. Identifiers and literals go through lib/pq
// quoting so a generated password can never break out of its statement.
func InitScript(services []ServiceDB) string {
	var b strings.Builder
	for _, svc := range services {
		role := pq.QuoteIdentifier(svc.Role)
		database := pq.QuoteIdentifier(svc.Database)
		fmt.Fprintf(&b, "CREATE ROLE %s LOGIN PASSWORD %s;\n", role, pq.QuoteLiteral(svc.Password))
		fmt.Fprintf(&b, "CREATE DATABASE %s OWNER %s;\n", database, role)
		fmt.Fprintf(&b, "GRANT ALL PRIVILEGES ON DATABASE %s TO %s;\n", database, role)
	}
	return b.String()
}

// DSN builds the connection string the service charts expect. The password
// is escaped for the userinfo position; generated passwords are alphanumeric
// and pass through unchanged.
func DSN(role, password, host string, port int, database string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(role, password),
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Parts holds the components of a parsed service DSN. The password is
// deliberately not carried.
type Parts struct {
	Role     string
	Host     string
	Port     int
	Database string
	SSLMode  string
}

// ParseDSN splits a service DSN back into its parts, rejecting anything
// that does not look like a connection string this tool would have written.
func ParseDSN(dsn string) (Parts, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Parts{}, fmt.Errorf("parse dsn: %w", err)
	}
	if u.Scheme != "postgres" {
		return Parts{}, fmt.Errorf("unexpected scheme %q, want postgres", u.Scheme)
	}
	if u.User == nil || u.User.Username() == "" {
		return Parts{}, fmt.Errorf("dsn is missing the role")
	}

	port := 5432
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Parts{}, fmt.Errorf("invalid port %q in dsn", p)
		}
	}

	database := strings.TrimPrefix(u.Path, "/")
	if database == "" {
		return Parts{}, fmt.Errorf("dsn is missing the database name")
	}

	return Parts{
		Role:     u.User.Username(),
		Host:     u.Hostname(),
		Port:     port,
		Database: database,
		SSLMode:  u.Query().Get("sslmode"),
	}, nil
}

// Verify probes connectivity with the canonical SELECT 1.
func Verify(ctx context.Context, db *sql.DB) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database verification failed: %w", err)
	}
	return nil
}
