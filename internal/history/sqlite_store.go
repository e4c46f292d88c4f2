package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/shiro/internal/logging"
	"github.com/raysh454/shiro/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

// schemaVersion is bumped whenever schema.sql changes shape.
const schemaVersion = "1"

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore persists the recent-scan log to SQLite. The table always
// holds exactly the log window: Save replaces the stored window in one
// transaction, so a crash between saves loses at most the latest scans,
// never corrupts the window.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
	config *Config
}

// NewSQLiteStore opens (or creates) the history database and applies the
// schema. An empty DBPath opens an in-memory database.
func NewSQLiteStore(logger logging.Logger, config *Config) (*SQLiteStore, error) {
	if logger == nil {
		return nil, errors.New("history: nil logger provided")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = DefaultConfig().SaveTimeout
	}

	dsn := config.DBPath
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	} else {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger, config: config}

	if err := s.checkSchemaVersion(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("history store initialized", logging.Field{Key: "path", Value: config.DBPath})
	return s, nil
}

// checkSchemaVersion records the schema version on first open and warns when
// an existing database was written by a different version.
func (s *SQLiteStore) checkSchemaVersion() error {
	stored, err := s.Meta(context.Background(), "schema_version")
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := s.setMeta(context.Background(), "schema_version", schemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case stored != schemaVersion:
		s.logger.Warn("history database schema version mismatch",
			logging.Field{Key: "stored", Value: stored},
			logging.Field{Key: "expected", Value: schemaVersion})
	}
	return nil
}

// Meta returns the value for key from the meta table, or sql.ErrNoRows if
// not present.
func (s *SQLiteStore) Meta(ctx context.Context, key string) (string, error) {
	var v sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v); err != nil {
		return "", err
	}
	return v.String, nil
}

func (s *SQLiteStore) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// applySchema applies the SQLite schema and sets pragmas.
func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous=NORMAL", // Balance between safety and performance
		"PRAGMA foreign_keys=ON",    // Enable foreign key constraints
		"PRAGMA busy_timeout=5000",  // Wait up to 5 seconds on locked database
		"PRAGMA temp_store=MEMORY",  // Store temp tables in memory
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Save replaces the stored scan window with results, oldest-first.
func (s *SQLiteStore) Save(ctx context.Context, results []*model.AnalysisResult) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.SaveTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scans`); err != nil {
		return fmt.Errorf("failed to clear scan window: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scans (scan_id, source, risk_level, scanned_at, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		payload, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal result for %q: %w", res.SourceName, err)
		}
		scannedAt := res.Timestamp.UTC().Format(timestampLayout)
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), res.SourceName, string(res.RiskLevel), scannedAt, string(payload)); err != nil {
			return fmt.Errorf("failed to insert scan for %q: %w", res.SourceName, err)
		}
	}

	savedAt := time.Now().UTC().Format(timestampLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('last_save_at', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, savedAt); err != nil {
		return fmt.Errorf("failed to record save time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

// Load returns the stored scan window, oldest-first. A row that fails to
// unmarshal is logged and skipped so one bad row cannot block startup.
func (s *SQLiteStore) Load(ctx context.Context) ([]*model.AnalysisResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM scans ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var results []*model.AnalysisResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var res model.AnalysisResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			s.logger.Warn("skipping corrupt history row", logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating scans: %w", err)
	}
	return results, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ISO 8601 with sub-second precision, sortable as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
