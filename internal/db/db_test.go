package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	dbh, err := Open(context.Background(), DriverSQLite, dsn, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func TestOpenIsIdempotent(t *testing.T) {
	dbh := openTestDB(t)
	if err := ensureSchema(context.Background(), dbh, DriverSQLite); err != nil {
		t.Fatalf("second ensureSchema: %v", err)
	}
	var n int
	if err := dbh.QueryRow(`SELECT COUNT(*) FROM user_questions`).Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty table, got %d rows", n)
	}
}

func TestParseDriver(t *testing.T) {
	cases := map[string]Driver{"": DriverSQLite, "sqlite3": DriverSQLite, "PGX": DriverPostgres, "postgresql": DriverPostgres}
	for in, want := range cases {
		got, err := ParseDriver(in)
		if err != nil || got != want {
			t.Errorf("ParseDriver(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDriver("mysql"); err == nil {
		t.Error("expected error for mysql")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	dbh := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, dbh, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_chapters (user_id, position, title, created_at) VALUES ($1, 0, NULL, 1)`, "u1"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	var n int
	if err := dbh.QueryRow(`SELECT COUNT(*) FROM user_chapters`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("rollback left %d rows", n)
	}
}

func TestClassifyConstraintSQLite(t *testing.T) {
	dbh := openTestDB(t)
	ctx := context.Background()

	var chapterID int64
	if err := dbh.QueryRowContext(ctx, `INSERT INTO user_chapters (user_id, position, title, created_at) VALUES ($1, 0, NULL, 1) RETURNING id`, "u1").Scan(&chapterID); err != nil {
		t.Fatal(err)
	}
	answer := `INSERT INTO answers (user_id, question_index, answer_text, created_at) VALUES ($1, $2, $3, 1)`
	if _, err := dbh.ExecContext(ctx, answer, "u1", 0, "first"); err != nil {
		t.Fatal(err)
	}

	_, err := dbh.ExecContext(ctx, answer, "u1", 0, "again")
	v, ok := ClassifyConstraint(err)
	if !ok {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if v.Kind != ConstraintUnique || v.Name != ConstraintAnswerIndex {
		t.Fatalf("got kind=%v name=%q", v.Kind, v.Name)
	}

	insert := `INSERT INTO user_questions (user_id, chapter_id, chapter_position, position, text) VALUES ($1, $2, 0, 0, $3)`
	_, err = dbh.ExecContext(ctx, insert, "u1", chapterID+100, "other")
	v, ok = ClassifyConstraint(err)
	if !ok || v.Kind != ConstraintForeignKey {
		t.Fatalf("expected foreign key violation, got %v (%v)", v, err)
	}

	if _, ok := ClassifyConstraint(errors.New("plain")); ok {
		t.Fatal("plain error classified as constraint")
	}
}

func TestQuestionTextsMayRepeatInStorage(t *testing.T) {
	dbh := openTestDB(t)
	ctx := context.Background()

	var chapterID int64
	if err := dbh.QueryRowContext(ctx, `INSERT INTO user_chapters (user_id, position, title, created_at) VALUES ($1, 0, NULL, 1) RETURNING id`, "u1").Scan(&chapterID); err != nil {
		t.Fatal(err)
	}
	insert := `INSERT INTO user_questions (user_id, chapter_id, chapter_position, position, text) VALUES ($1, $2, $3, $3, 'same')`
	for i := 0; i < 2; i++ {
		if _, err := dbh.ExecContext(ctx, insert, "u1", chapterID, i); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
}

func TestEnsureSchemaDropsLegacyTextKey(t *testing.T) {
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	raw, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = raw.Close() })

	legacy := []string{
		`CREATE TABLE user_chapters (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id TEXT NOT NULL, position INTEGER NOT NULL, title TEXT, created_at INTEGER NOT NULL)`,
		`CREATE TABLE user_questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  chapter_id INTEGER REFERENCES user_chapters(id) ON DELETE CASCADE,
  chapter_position INTEGER NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 0,
  text TEXT NOT NULL,
  created_at INTEGER NOT NULL DEFAULT 0,
  CONSTRAINT user_questions_chapter_text_key UNIQUE (chapter_id, text)
)`,
		`INSERT INTO user_questions (user_id, chapter_id, text) VALUES ('u1', NULL, 'legacy'), ('u1', NULL, 'legacy')`,
	}
	for _, stmt := range legacy {
		if _, err := raw.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("legacy schema: %v", err)
		}
	}

	if err := ensureSchema(ctx, raw, DriverSQLite); err != nil {
		t.Fatalf("ensureSchema: %v", err)
	}
	if err := ensureSchema(ctx, raw, DriverSQLite); err != nil {
		t.Fatalf("second ensureSchema: %v", err)
	}

	var n int
	if err := raw.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_questions WHERE text='legacy'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("rebuild kept %d rows, want 2", n)
	}

	var chapterID int64
	if err := raw.QueryRowContext(ctx, `INSERT INTO user_chapters (user_id, position, title, created_at) VALUES ('u1', 0, NULL, 1) RETURNING id`).Scan(&chapterID); err != nil {
		t.Fatal(err)
	}
	if _, err := raw.ExecContext(ctx, `UPDATE user_questions SET chapter_id=$1 WHERE user_id='u1'`, chapterID); err != nil {
		t.Fatalf("legacy duplicates still rejected: %v", err)
	}
}

func TestSQLiteConstraintName(t *testing.T) {
	msg := "constraint failed: UNIQUE constraint failed: answers.user_id, answers.question_index (2067)"
	if got := sqliteConstraintName(msg); got != ConstraintAnswerIndex {
		t.Fatalf("got %q", got)
	}
	if got := sqliteConstraintName("UNIQUE constraint failed: t.x"); got != "t.x" {
		t.Fatalf("unknown columns should pass through, got %q", got)
	}
}
