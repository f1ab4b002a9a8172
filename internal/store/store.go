// Package store persists editing sessions to PostgreSQL.
//
// Queries are built from core.TableDefinition at runtime: column ids map to
// database columns through TableDefinition.DBColumn and every identifier is
// quoted. Saves run in a single transaction, so a failing record leaves the
// table untouched and the session's rows stay unsaved.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/pastegrid/internal/core"
	"github.com/JonMunkholm/pastegrid/internal/grid"
)

var (
	ErrMissingIdentity = errors.New("missing identity value")
	ErrStaleRecord     = errors.New("row not found in database")
	ErrNoIdentity      = errors.New("table has no identity column")
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DB is a DBTX that can start transactions. *pgxpool.Pool satisfies it.
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements core.Store.
type Store struct {
	db DB
}

var _ core.Store = (*Store)(nil)

// New creates a Store over db.
func New(db DB) *Store {
	return &Store{db: db}
}

// Load returns every record of the table, ordered by identity.
func (s *Store) Load(ctx context.Context, def core.TableDefinition) ([]grid.Record, error) {
	query, ids := selectQuery(def)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", def.DBTable, err)
	}
	raw, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", def.DBTable, err)
	}

	records := make([]grid.Record, 0, len(raw))
	for _, r := range raw {
		rec := make(grid.Record, len(ids))
		for _, id := range ids {
			if v := fromDB(r[def.DBColumn(id)]); v != nil {
				rec[id] = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Apply updates existing records in one transaction. Each record is partial:
// only its keys are written. Every record must carry the identity value.
func (s *Store) Apply(ctx context.Context, def core.TableDefinition, records []grid.Record) error {
	if def.IdentityColumn == "" {
		return fmt.Errorf("apply %s: %w", def.Info.Key, ErrNoIdentity)
	}

	stmts := make([]statement, 0, len(records))
	for i, rec := range records {
		st, err := updateQuery(def, rec)
		if err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		if st.sql == "" {
			continue // only the identity is present
		}
		stmts = append(stmts, st)
	}
	if len(stmts) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, st := range stmts {
			tag, err := tx.Exec(ctx, st.sql, st.args...)
			if err != nil {
				return fmt.Errorf("update %s: %w", def.DBTable, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("update %s %v: %w", def.DBTable, st.key, ErrStaleRecord)
			}
		}
		return nil
	})
}

// Insert creates records in one transaction, queued as a single batch.
func (s *Store) Insert(ctx context.Context, def core.TableDefinition, records []grid.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		st := insertQuery(def, rec)
		batch.Queue(st.sql, st.args...)
	}

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := range records {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert %s record %d: %w", def.DBTable, i+1, err)
			}
		}
		return br.Close()
	})
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}
