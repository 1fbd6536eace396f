// Package store archives density matrices in a sqlite database.
//
// Matrices are stored sparsely as (run, i, j, re, im) rows keyed by a run
// name, with the shape kept in a separate runs table so that all-zero
// borders survive a round trip.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableMatrix = "m"
	tableRuns   = "runs"
)

// Store is a density matrix archive. It is safe for use from a single
// goroutine at a time.
type Store struct {
	Path string

	db *sql.DB
}

// Open opens or creates the archive at dbPath.
// Existing runs are kept.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return &Store{Path: dbPath, db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores dense under run, replacing any previous matrix of that run.
func (s *Store) Put(run string, dense [][]complex64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE run=?`, tableMatrix)
	if _, err := tx.ExecContext(ctx, sqlStr, run); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`INSERT OR REPLACE INTO %s (run, rows, cols) VALUES (?, ?, ?)`, tableRuns)
	if _, err := tx.ExecContext(ctx, sqlStr, run, len(dense), len(dense[0])); err != nil {
		return errors.Wrap(err, "")
	}

	sqlStr = fmt.Sprintf(`INSERT INTO %s (run, i, j, re, im) VALUES (?, ?, ?, ?, ?)`, tableMatrix)
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, sqlStr, run, i, j, real(v), imag(v)); err != nil {
				return errors.Wrap(err, fmt.Sprintf("%s %d %d", run, i, j))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Get returns the matrix stored under run.
func (s *Store) Get(run string) ([][]complex64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sqlStr := fmt.Sprintf(`SELECT rows, cols FROM %s WHERE run=?`, tableRuns)
	var numRows, numCols int
	if err := s.db.QueryRowContext(ctx, sqlStr, run).Scan(&numRows, &numCols); err != nil {
		return nil, errors.Wrap(err, run)
	}
	dense := make([][]complex64, numRows)
	for i := range dense {
		dense[i] = make([]complex64, numCols)
	}

	sqlStr = fmt.Sprintf(`SELECT i, j, re, im FROM %s WHERE run=? ORDER BY i, j`, tableMatrix)
	rows, err := s.db.QueryContext(ctx, sqlStr, run)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	for rows.Next() {
		var i, j int
		var re, im float32
		if err := rows.Scan(&i, &j, &re, &im); err != nil {
			return nil, errors.Wrap(err, "")
		}
		dense[i][j] = complex(re, im)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	return dense, nil
}

// Runs returns the names of all stored runs in lexicographic order.
func (s *Store) Runs() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sqlStr := fmt.Sprintf(`SELECT run FROM %s ORDER BY run`, tableRuns)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var run string
		if err := rows.Scan(&run); err != nil {
			return nil, errors.Wrap(err, "")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	return runs, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run TEXT, i INTEGER, j INTEGER, re REAL, im REAL, PRIMARY KEY (run, i, j)) STRICT`, tableMatrix)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run TEXT PRIMARY KEY, rows INTEGER, cols INTEGER) STRICT`, tableRuns)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
