// Package store persists comparison results to MySQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/layoutdiff/internal/cidutil"
	"github.com/dbsmedya/layoutdiff/internal/lock"
	"github.com/dbsmedya/layoutdiff/internal/logger"
	"github.com/dbsmedya/layoutdiff/internal/sqlutil"
)

var (
	// ErrRunNotFound is returned when a pair has no stored run.
	ErrRunNotFound = errors.New("no stored run for pair")

	// ErrCorruptRun is returned when stored records no longer match their CID.
	ErrCorruptRun = errors.New("stored run does not match its report cid")
)

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	pair_name VARCHAR(255) NOT NULL,
	report_cid VARCHAR(128) NOT NULL,
	common_objects INT NOT NULL,
	merged_types INT NOT NULL,
	common_objects_json LONGTEXT NOT NULL,
	types_json LONGTEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_pair (pair_name, id)
) ENGINE=InnoDB
`

// Run is one stored comparison.
type Run struct {
	ID                int64
	Pair              string
	ReportCID         string
	CommonObjects     int
	MergedTypes       int
	CommonObjectsJSON []byte
	TypesJSON         []byte
	CreatedAt         time.Time
}

// Store reads and writes runs in a single table.
type Store struct {
	db          *sql.DB
	table       string // quoted
	lockTimeout int
	logger      *logger.Logger
}

// New creates a store over db. table is validated and may be schema
// qualified.
func New(db *sql.DB, table string, lockTimeoutSeconds int, log *logger.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	quoted, err := sqlutil.QuoteTableName(table)
	if err != nil {
		return nil, fmt.Errorf("store table: %w", err)
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Store{
		db:          db,
		table:       quoted,
		lockTimeout: lockTimeoutSeconds,
		logger:      log,
	}, nil
}

// EnsureSchema creates the runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createRunsTableSQL, s.table)); err != nil {
		return fmt.Errorf("failed to create %s table: %w", s.table, err)
	}
	s.logger.Debugw("Store schema ready", "table", s.table)
	return nil
}

// Save stores run unless the latest run of the same pair already has the
// same report CID. It returns the ID of the new or existing row and whether
// a row was inserted. The check and the insert run under the pair's
// advisory lock on one session.
func (s *Store) Save(ctx context.Context, run *Run) (int64, bool, error) {
	if run.Pair == "" {
		return 0, false, fmt.Errorf("run has no pair name")
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open store session: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var (
		id       int64
		inserted bool
	)
	pairLock := lock.NewPairLock(conn, run.Pair)
	err = pairLock.WithLock(ctx, s.lockTimeout, func() error {
		var (
			lastID  int64
			lastCID string
		)
		query := fmt.Sprintf("SELECT id, report_cid FROM %s WHERE pair_name = ? ORDER BY id DESC LIMIT 1", s.table)
		err := conn.QueryRowContext(ctx, query, run.Pair).Scan(&lastID, &lastCID)
		switch {
		case err == nil && lastCID == run.ReportCID:
			id = lastID
			return nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to read latest run: %w", err)
		}

		insert := fmt.Sprintf("INSERT INTO %s (pair_name, report_cid, common_objects, merged_types, common_objects_json, types_json) VALUES (?, ?, ?, ?, ?, ?)", s.table)
		res, err := conn.ExecContext(ctx, insert,
			run.Pair, run.ReportCID, run.CommonObjects, run.MergedTypes,
			string(run.CommonObjectsJSON), string(run.TypesJSON))
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read run id: %w", err)
		}
		inserted = true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("save run for pair %q: %w", run.Pair, err)
	}

	run.ID = id
	s.logger.Infow("Run stored",
		"pair", run.Pair,
		"id", id,
		"cid", run.ReportCID,
		"inserted", inserted,
	)
	return id, inserted, nil
}

// Latest returns the most recent run of pair. The stored records are
// checked against their CID.
func (s *Store) Latest(ctx context.Context, pair string) (*Run, error) {
	query := fmt.Sprintf("SELECT id, pair_name, report_cid, common_objects, merged_types, common_objects_json, types_json, created_at FROM %s WHERE pair_name = ? ORDER BY id DESC LIMIT 1", s.table)

	var (
		run        Run
		commonJSON string
		typesJSON  string
	)
	err := s.db.QueryRowContext(ctx, query, pair).Scan(
		&run.ID, &run.Pair, &run.ReportCID, &run.CommonObjects, &run.MergedTypes,
		&commonJSON, &typesJSON, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, pair)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest run: %w", err)
	}
	run.CommonObjectsJSON = []byte(commonJSON)
	run.TypesJSON = []byte(typesJSON)

	ok, err := cidutil.VerifyReport(run.ReportCID, run.CommonObjectsJSON, run.TypesJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRun, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: run %d of pair %s", ErrCorruptRun, run.ID, pair)
	}

	return &run, nil
}
