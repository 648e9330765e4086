// Package answers stores a user's answers keyed by global question index.
// The index space belongs to the structure package; this package only keeps
// saved answers inside it.
package answers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mind-engage/interviewbook/internal/db"
	"github.com/mind-engage/interviewbook/internal/lock"
)

type Answer struct {
	QuestionIndex int    `json:"questionIndex"`
	Text          string `json:"text"`
}

type Options struct {
	Locker        lock.Locker
	Logger        *slog.Logger
	AdvisoryLocks bool
	Now           func() time.Time
}

type Service struct {
	db       *sql.DB
	driver   db.Driver
	locker   lock.Locker
	log      *slog.Logger
	advisory bool
	now      func() time.Time
}

// NewService must be given the same Locker as the structure service so that
// saves and structural edits for one user never interleave.
func NewService(dbh *sql.DB, driver db.Driver, opts Options) *Service {
	s := &Service{db: dbh, driver: driver, locker: opts.Locker, log: opts.Logger, advisory: opts.AdvisoryLocks, now: opts.Now}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// List returns the user's answers ordered by index.
func (s *Service) List(ctx context.Context, userID string) ([]Answer, error) {
	return list(ctx, s.db, userID)
}

// Replace swaps the user's whole answer set for entries. Negative indexes and
// indexes at or beyond the current question count are dropped; for repeated
// indexes the last entry wins. The stored set is returned.
func (s *Service) Replace(ctx context.Context, userID string, entries []Answer) ([]Answer, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("answers: user id is required")
	}
	release, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []Answer
	err = db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		if s.advisory {
			if err := db.AdvisoryLock(ctx, tx, s.driver, userID); err != nil {
				return err
			}
		}
		var total int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_questions WHERE user_id=$1`, userID).Scan(&total); err != nil {
			return fmt.Errorf("count questions: %w", err)
		}
		keep, err := ReplaceIn(ctx, tx, userID, entries, total, s.now())
		if err != nil {
			return err
		}
		if dropped := len(entries) - len(keep); dropped > 0 {
			s.log.DebugContext(ctx, "answers dropped", slog.String("user_id", userID), slog.Int("dropped", dropped), slog.Int("total", total))
		}
		out = keep
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "answers save failed", slog.String("op", "replace_answers"), slog.String("user_id", userID),
			slog.Int("requested", len(entries)), slog.Any("error", err))
		return nil, err
	}
	return out, nil
}

// ReplaceIn swaps the user's answer set on q, which must be a transaction
// that already holds the user's lock. total is the user's question count.
func ReplaceIn(ctx context.Context, q db.Querier, userID string, entries []Answer, total int, now time.Time) ([]Answer, error) {
	keep := Normalize(entries, total)
	if _, err := q.ExecContext(ctx, `DELETE FROM answers WHERE user_id=$1`, userID); err != nil {
		return nil, fmt.Errorf("clear answers: %w", err)
	}
	for _, a := range keep {
		if _, err := q.ExecContext(ctx, `INSERT INTO answers (user_id, question_index, answer_text, created_at) VALUES ($1, $2, $3, $4)`,
			userID, a.QuestionIndex, a.Text, now.Unix()); err != nil {
			return nil, fmt.Errorf("insert answer %d: %w", a.QuestionIndex, err)
		}
	}
	return keep, nil
}

// Normalize keeps entries with 0 <= index < total, last one per index wins,
// and returns them sorted by index.
func Normalize(entries []Answer, total int) []Answer {
	byIndex := make(map[int]string, len(entries))
	for _, a := range entries {
		if a.QuestionIndex < 0 || a.QuestionIndex >= total {
			continue
		}
		byIndex[a.QuestionIndex] = a.Text
	}
	out := make([]Answer, 0, len(byIndex))
	for i, t := range byIndex {
		out = append(out, Answer{QuestionIndex: i, Text: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionIndex < out[j].QuestionIndex })
	return out
}

func list(ctx context.Context, q db.Querier, userID string) ([]Answer, error) {
	rows, err := q.QueryContext(ctx, `SELECT question_index, answer_text FROM answers WHERE user_id=$1 ORDER BY question_index`, userID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	out := []Answer{}
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.QuestionIndex, &a.Text); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
