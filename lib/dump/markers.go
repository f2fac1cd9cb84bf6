package dump

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nstools/lib/sqliteutil"

	sq "github.com/Masterminds/squirrel"
)

const markerSchema = `create table if not exists resource_marker (
	name text primary key,
	source text not null,
	retrieved_at integer not null,
	size integer not null
);`

// Marker records when a resource was last retrieved.
type Marker struct {
	Name        string
	Source      string
	RetrievedAt time.Time
	Size        int64
}

// MarkerStore keeps resource markers in a sqlite database.
type MarkerStore struct {
	db *sql.DB
}

// OpenMarkerStore opens (and creates) the marker database at location,
// see sqliteutil.OpenDB.
func OpenMarkerStore(ctx context.Context, location string) (*MarkerStore, error) {
	db, err := sqliteutil.OpenDB(ctx, location, markerSchema)
	if err != nil {
		return nil, fmt.Errorf("open marker store: %w", err)
	}
	return &MarkerStore{db: db}, nil
}

func (s *MarkerStore) Close() error {
	return s.db.Close()
}

// Get returns the marker of a resource, ok is false when there is none.
func (s *MarkerStore) Get(ctx context.Context, name string) (Marker, bool, error) {
	var m Marker
	var retrievedAt int64
	err := sq.Select("name", "source", "retrieved_at", "size").
		From("resource_marker").
		Where(sq.Eq{"name": name}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&m.Name, &m.Source, &retrievedAt, &m.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return Marker{}, false, nil
	}
	if err != nil {
		return Marker{}, false, err
	}
	m.RetrievedAt = time.Unix(retrievedAt, 0).UTC()
	return m, true, nil
}

func (s *MarkerStore) Put(ctx context.Context, m Marker) error {
	_, err := sq.Insert("resource_marker").
		Columns("name", "source", "retrieved_at", "size").
		Values(m.Name, m.Source, m.RetrievedAt.Unix(), m.Size).
		Suffix("on conflict(name) do update set source = excluded.source, retrieved_at = excluded.retrieved_at, size = excluded.size").
		RunWith(s.db).
		ExecContext(ctx)
	return err
}

func (s *MarkerStore) Delete(ctx context.Context, name string) error {
	_, err := sq.Delete("resource_marker").
		Where(sq.Eq{"name": name}).
		RunWith(s.db).
		ExecContext(ctx)
	return err
}

// List returns every marker ordered by name.
func (s *MarkerStore) List(ctx context.Context) ([]Marker, error) {
	rows, err := sq.Select("name", "source", "retrieved_at", "size").
		From("resource_marker").
		OrderBy("name").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Marker
	for rows.Next() {
		var m Marker
		var retrievedAt int64
		err := rows.Scan(&m.Name, &m.Source, &retrievedAt, &m.Size)
		if err != nil {
			return nil, err
		}
		m.RetrievedAt = time.Unix(retrievedAt, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
