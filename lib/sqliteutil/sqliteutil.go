package sqliteutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// IsRemote reports whether the location names a libsql server rather
// than a local file.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "libsql://") ||
		strings.HasPrefix(location, "http://") ||
		strings.HasPrefix(location, "https://") ||
		strings.HasPrefix(location, "wss://")
}

// OpenDB opens the database at location and applies schema to it.
// location is either a path to a local sqlite file (created along with
// its parent directory when missing), ":memory:", or a libsql url.
func OpenDB(ctx context.Context, location, schema string) (*sql.DB, error) {
	if location == "" {
		return nil, fmt.Errorf("a database location was not specified")
	}

	var db *sql.DB
	var err error
	switch {
	case IsRemote(location):
		db, err = sql.Open("libsql", location)
		if err != nil {
			return nil, err
		}
	default:
		if location != ":memory:" {
			err = os.MkdirAll(filepath.Dir(location), 0777)
			if err != nil {
				return nil, err
			}
		}
		db, err = sql.Open("sqlite", location)
		if err != nil {
			return nil, err
		}
		// sqlite only allows a single writer, :memory: databases are
		// also per connection.
		db.SetMaxOpenConns(1)
		if location != ":memory:" {
			_, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
			if err != nil {
				db.Close()
				return nil, err
			}
		}
	}

	if schema != "" {
		_, err = db.ExecContext(ctx, schema)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}
