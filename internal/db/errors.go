package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type ConstraintKind int

const (
	ConstraintUnique ConstraintKind = iota + 1
	ConstraintForeignKey
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintForeignKey:
		return "foreign_key"
	default:
		return "unknown"
	}
}

// Constraint names used by the schema. SQLite does not report constraint
// names, so violations are mapped back from the failing column list.
// ConstraintQuestionText is no longer a schema constraint; the name is kept
// for the duplicate text rule enforced on insert.
const (
	ConstraintQuestionText   = "user_questions_chapter_text_key"
	ConstraintFirstChapter   = "user_chapters_user_first_key"
	ConstraintAnswerIndex    = "answers_user_index_key"
	ConstraintQuestionToChap = "user_questions_chapter_id_fkey"
)

var sqliteColumnConstraints = map[string]string{
	"user_chapters.user_id":                   ConstraintFirstChapter,
	"answers.user_id, answers.question_index": ConstraintAnswerIndex,
}

// ConstraintViolation describes a storage-level constraint failure.
type ConstraintViolation struct {
	Kind ConstraintKind
	Name string
	Err  error
}

func (v *ConstraintViolation) Error() string {
	if v.Name == "" {
		return v.Kind.String() + " constraint violated: " + v.Err.Error()
	}
	return v.Kind.String() + " constraint " + v.Name + " violated: " + v.Err.Error()
}

func (v *ConstraintViolation) Unwrap() error { return v.Err }

// ClassifyConstraint reports whether err is a unique or foreign key violation
// raised by either supported driver.
func ClassifyConstraint(err error) (*ConstraintViolation, bool) {
	if err == nil {
		return nil, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &ConstraintViolation{Kind: ConstraintUnique, Name: pgErr.ConstraintName, Err: err}, true
		case "23503":
			return &ConstraintViolation{Kind: ConstraintForeignKey, Name: pgErr.ConstraintName, Err: err}, true
		}
		return nil, false
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &ConstraintViolation{Kind: ConstraintUnique, Name: sqliteConstraintName(sqErr.Error()), Err: err}, true
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return &ConstraintViolation{Kind: ConstraintForeignKey, Name: ConstraintQuestionToChap, Err: err}, true
		case sqlite3.SQLITE_CONSTRAINT:
			// extended codes disabled; fall back to the message
			msg := sqErr.Error()
			switch {
			case strings.Contains(msg, "UNIQUE constraint failed"):
				return &ConstraintViolation{Kind: ConstraintUnique, Name: sqliteConstraintName(msg), Err: err}, true
			case strings.Contains(msg, "FOREIGN KEY constraint failed"):
				return &ConstraintViolation{Kind: ConstraintForeignKey, Name: ConstraintQuestionToChap, Err: err}, true
			}
		}
	}
	return nil, false
}

// sqliteConstraintName extracts the column list from a message such as
// "UNIQUE constraint failed: user_questions.chapter_id, user_questions.text".
func sqliteConstraintName(msg string) string {
	i := strings.LastIndex(msg, "failed: ")
	if i < 0 {
		return ""
	}
	cols := msg[i+len("failed: "):]
	if j := strings.Index(cols, " ("); j >= 0 {
		cols = cols[:j]
	}
	cols = strings.TrimSpace(cols)
	if name, ok := sqliteColumnConstraints[cols]; ok {
		return name
	}
	return cols
}
