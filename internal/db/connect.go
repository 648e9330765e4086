package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver maps common aliases to a Driver.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pg", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", s)
	}
}

// Open opens a DB, tunes the pool and ensures schema exists.
// maxOpen <= 0 keeps the driver default.
func Open(ctx context.Context, driver Driver, dsn string, maxOpen int) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:interviewbook.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/interviewbook?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	tunePool(driver, db, maxOpen)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	if driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// tunePool sets conservative defaults per driver.
func tunePool(driver Driver, db *sql.DB, maxOpen int) {
	maxIdle := 10
	connLife := 45 * time.Minute
	idleLife := 15 * time.Minute
	if maxOpen <= 0 {
		maxOpen = 20
	}

	if driver == DriverSQLite {
		// single writer; one connection also keeps shared in-memory databases alive
		maxOpen = 1
		maxIdle = 1
		connLife = 0
		idleLife = 0
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connLife)
	db.SetConnMaxIdleTime(idleLife)
}

func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("db: sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		if err := dropSQLiteQuestionTextKey(ctx, db); err != nil {
			return err
		}
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}

	// Some drivers reject multi-statement scripts; fall back to one statement at a time.
	if _, err := db.ExecContext(ctx, schema); err != nil {
		for _, stmt := range strings.Split(schema, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, e := db.ExecContext(ctx, stmt); e != nil {
				return fmt.Errorf("db: schema failed at %q: %w", firstLine(stmt), e)
			}
		}
	}
	return nil
}

// dropSQLiteQuestionTextKey rebuilds a user_questions table created with the
// old UNIQUE (chapter_id, text) constraint. SQLite cannot drop a table
// constraint in place. Indexes are recreated by the schema that follows.
func dropSQLiteQuestionTextKey(ctx context.Context, db *sql.DB) error {
	var ddl string
	err := db.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE type='table' AND name='user_questions'`).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("db: inspect user_questions: %w", err)
	}
	if !strings.Contains(ddl, ConstraintQuestionText) {
		return nil
	}
	return WithTx(ctx, db, nil, func(tx *sql.Tx) error {
		stmts := []string{
			`CREATE TABLE user_questions_rebuild (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  chapter_id INTEGER REFERENCES user_chapters(id) ON DELETE CASCADE,
  chapter_position INTEGER NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 0,
  text TEXT NOT NULL,
  created_at INTEGER NOT NULL DEFAULT 0
)`,
			`INSERT INTO user_questions_rebuild (id, user_id, chapter_id, chapter_position, position, text, created_at)
  SELECT id, user_id, chapter_id, chapter_position, position, text, created_at FROM user_questions`,
			`DROP TABLE user_questions`,
			`ALTER TABLE user_questions_rebuild RENAME TO user_questions`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("db: rebuild user_questions at %q: %w", firstLine(stmt), err)
			}
		}
		return nil
	})
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS user_chapters (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  title TEXT,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS user_chapters_user_position_idx
  ON user_chapters (user_id, position);

-- at most one chapter at position 0 per user; guards the lazy default chapter
CREATE UNIQUE INDEX IF NOT EXISTS user_chapters_user_first_key
  ON user_chapters (user_id) WHERE position = 0;

CREATE TABLE IF NOT EXISTS user_questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  chapter_id INTEGER REFERENCES user_chapters(id) ON DELETE CASCADE,
  chapter_position INTEGER NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 0,
  text TEXT NOT NULL,
  created_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS user_questions_user_position_idx
  ON user_questions (user_id, position);

-- text uniqueness per chapter is checked on insert, not here: adopted
-- legacy rows may repeat a text
CREATE INDEX IF NOT EXISTS user_questions_chapter_idx
  ON user_questions (chapter_id, text);

CREATE TABLE IF NOT EXISTS answers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  question_index INTEGER NOT NULL,
  answer_text TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  CONSTRAINT answers_user_index_key UNIQUE (user_id, question_index)
);

CREATE TABLE IF NOT EXISTS structure_events (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  typ TEXT NOT NULL,
  key TEXT NOT NULL DEFAULT '',
  data TEXT NOT NULL DEFAULT '{}',
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS structure_events_user_idx
  ON structure_events (user_id, "offset");
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS user_chapters (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  title TEXT,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS user_chapters_user_position_idx
  ON user_chapters (user_id, position);

CREATE UNIQUE INDEX IF NOT EXISTS user_chapters_user_first_key
  ON user_chapters (user_id) WHERE position = 0;

CREATE TABLE IF NOT EXISTS user_questions (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  chapter_id BIGINT REFERENCES user_chapters(id) ON DELETE CASCADE,
  chapter_position INTEGER NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 0,
  text TEXT NOT NULL,
  created_at BIGINT NOT NULL DEFAULT 0
);

ALTER TABLE user_questions DROP CONSTRAINT IF EXISTS user_questions_chapter_text_key;

CREATE INDEX IF NOT EXISTS user_questions_user_position_idx
  ON user_questions (user_id, position);

CREATE INDEX IF NOT EXISTS user_questions_chapter_idx
  ON user_questions (chapter_id, text);

CREATE TABLE IF NOT EXISTS answers (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  question_index INTEGER NOT NULL,
  answer_text TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  CONSTRAINT answers_user_index_key UNIQUE (user_id, question_index)
);

CREATE TABLE IF NOT EXISTS structure_events (
  "offset" BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  typ TEXT NOT NULL,
  key TEXT NOT NULL DEFAULT '',
  data TEXT NOT NULL DEFAULT '{}',
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS structure_events_user_idx
  ON structure_events (user_id, "offset");
`
