package structure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/interviewbook/internal/db"
)

// SQLStore holds the chapter/question/answer statements. It keeps no
// connection of its own; every method runs on the Querier it is given, which
// normally the transaction of a load or a mutation.
type SQLStore struct {
	driver db.Driver
	now    func() time.Time
}

func NewSQLStore(driver db.Driver) *SQLStore {
	return &SQLStore{driver: driver, now: time.Now}
}

func (s *SQLStore) ListChapters(ctx context.Context, q db.Querier, userID string) ([]Chapter, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, user_id, position, title, created_at
		FROM user_chapters WHERE user_id=$1 ORDER BY position, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []Chapter
	for rows.Next() {
		var c Chapter
		var title sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Position, &title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		if title.Valid {
			t := title.String
			c.Title = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertDefaultChapter creates the untitled chapter at position 0 unless the
// user already has one there.
func (s *SQLStore) InsertDefaultChapter(ctx context.Context, q db.Querier, userID string) (bool, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO user_chapters (user_id, position, title, created_at)
		VALUES ($1, 0, NULL, $2)
		ON CONFLICT (user_id) WHERE position = 0 DO NOTHING`, userID, s.now().Unix())
	if err != nil {
		return false, fmt.Errorf("insert default chapter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendChapter inserts a chapter after the user's current last chapter.
func (s *SQLStore) AppendChapter(ctx context.Context, q db.Querier, userID string, title *string) (Chapter, error) {
	var next int
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM user_chapters WHERE user_id=$1`, userID).Scan(&next); err != nil {
		return Chapter{}, fmt.Errorf("next chapter position: %w", err)
	}
	c := Chapter{UserID: userID, Position: next, Title: title, CreatedAt: s.now().Unix()}
	if err := q.QueryRowContext(ctx, `INSERT INTO user_chapters (user_id, position, title, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`, userID, next, nullString(title), c.CreatedAt).Scan(&c.ID); err != nil {
		return Chapter{}, fmt.Errorf("insert chapter: %w", err)
	}
	return c, nil
}

// GetChapter returns the chapter only if userID owns it.
func (s *SQLStore) GetChapter(ctx context.Context, q db.Querier, userID string, chapterID int64) (Chapter, error) {
	var c Chapter
	var title sql.NullString
	err := q.QueryRowContext(ctx, `SELECT id, user_id, position, title, created_at
		FROM user_chapters WHERE id=$1 AND user_id=$2`, chapterID, userID).
		Scan(&c.ID, &c.UserID, &c.Position, &title, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Chapter{}, ErrChapterNotFound
	}
	if err != nil {
		return Chapter{}, fmt.Errorf("get chapter: %w", err)
	}
	if title.Valid {
		t := title.String
		c.Title = &t
	}
	return c, nil
}

func (s *SQLStore) UpdateChapterPosition(ctx context.Context, q db.Querier, chapterID int64, position int) error {
	if _, err := q.ExecContext(ctx, `UPDATE user_chapters SET position=$1 WHERE id=$2`, position, chapterID); err != nil {
		return fmt.Errorf("update chapter position: %w", err)
	}
	return nil
}

// ListQuestions returns the user's questions in pre-existing global order.
// With orphansOnly set, only questions without a chapter are returned.
func (s *SQLStore) ListQuestions(ctx context.Context, q db.Querier, userID string, orphansOnly bool) ([]Question, error) {
	query := `SELECT id, user_id, chapter_id, chapter_position, position, text
		FROM user_questions WHERE user_id=$1`
	if orphansOnly {
		query += ` AND chapter_id IS NULL`
	}
	query += ` ORDER BY position, id`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var qu Question
		var chapterID sql.NullInt64
		if err := rows.Scan(&qu.ID, &qu.UserID, &chapterID, &qu.ChapterPosition, &qu.Position, &qu.Text); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if chapterID.Valid {
			id := chapterID.Int64
			qu.ChapterID = &id
		}
		out = append(out, qu)
	}
	return out, rows.Err()
}

// MaxChapterPosition returns -1 for an empty chapter.
func (s *SQLStore) MaxChapterPosition(ctx context.Context, q db.Querier, chapterID int64) (int, error) {
	var max int
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(chapter_position), -1) FROM user_questions WHERE chapter_id=$1`, chapterID).Scan(&max); err != nil {
		return 0, fmt.Errorf("max chapter position: %w", err)
	}
	return max, nil
}

// ChapterTexts returns the set of question texts stored in the chapter.
func (s *SQLStore) ChapterTexts(ctx context.Context, q db.Querier, chapterID int64) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT text FROM user_questions WHERE chapter_id=$1`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("chapter texts: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan chapter text: %w", err)
		}
		out[t] = true
	}
	return out, rows.Err()
}

func (s *SQLStore) AssignQuestion(ctx context.Context, q db.Querier, questionID, chapterID int64, chapterPosition int) error {
	if _, err := q.ExecContext(ctx, `UPDATE user_questions SET chapter_id=$1, chapter_position=$2 WHERE id=$3`,
		chapterID, chapterPosition, questionID); err != nil {
		return fmt.Errorf("assign question: %w", err)
	}
	return nil
}

// sequenceRow is a question joined to its chapter's position.
type sequenceRow struct {
	ID              int64
	ChapterID       sql.NullInt64
	ChapterOrder    int
	ChapterPosition int
	Position        int
}

func (s *SQLStore) ListSequence(ctx context.Context, q db.Querier, userID string) ([]sequenceRow, error) {
	rows, err := q.QueryContext(ctx, `SELECT qu.id, qu.chapter_id, COALESCE(c.position, 0), qu.chapter_position, qu.position
		FROM user_questions qu
		LEFT JOIN user_chapters c ON c.id = qu.chapter_id
		WHERE qu.user_id=$1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sequence: %w", err)
	}
	defer rows.Close()

	var out []sequenceRow
	for rows.Next() {
		var r sequenceRow
		if err := rows.Scan(&r.ID, &r.ChapterID, &r.ChapterOrder, &r.ChapterPosition, &r.Position); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateQuestionPositions(ctx context.Context, q db.Querier, questionID int64, chapterPosition, position int) error {
	if _, err := q.ExecContext(ctx, `UPDATE user_questions SET chapter_position=$1, position=$2 WHERE id=$3`,
		chapterPosition, position, questionID); err != nil {
		return fmt.Errorf("update question positions: %w", err)
	}
	return nil
}

func (s *SQLStore) InsertQuestion(ctx context.Context, q db.Querier, userID string, chapterID int64, chapterPosition int, text string) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, `INSERT INTO user_questions (user_id, chapter_id, chapter_position, position, text, created_at)
		VALUES ($1, $2, $3, 0, $4, $5) RETURNING id`, userID, chapterID, chapterPosition, text, s.now().Unix()).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return id, nil
}

func (s *SQLStore) DeleteChapterQuestions(ctx context.Context, q db.Querier, userID string, chapterID int64) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM user_questions WHERE user_id=$1 AND chapter_id=$2`, userID, chapterID)
	if err != nil {
		return 0, fmt.Errorf("delete chapter questions: %w", err)
	}
	return res.RowsAffected()
}

// DeleteQuestion removes the question only if userID owns it.
func (s *SQLStore) DeleteQuestion(ctx context.Context, q db.Querier, userID string, questionID int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM user_questions WHERE id=$1 AND user_id=$2`, questionID, userID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// DeleteAnswersFrom removes answers at or beyond index bound.
func (s *SQLStore) DeleteAnswersFrom(ctx context.Context, q db.Querier, userID string, bound int) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM answers WHERE user_id=$1 AND question_index >= $2`, userID, bound)
	if err != nil {
		return 0, fmt.Errorf("prune answers: %w", err)
	}
	return res.RowsAffected()
}

// structureRow is one row of the chapter LEFT JOIN question read.
type structureRow struct {
	ChapterID       int64
	ChapterPosition int
	Title           sql.NullString
	QuestionID      sql.NullInt64
	QuestionChapPos sql.NullInt64
	Text            sql.NullString
}

func (s *SQLStore) ListStructure(ctx context.Context, q db.Querier, userID string) ([]structureRow, error) {
	rows, err := q.QueryContext(ctx, `SELECT c.id, c.position, c.title, qu.id, qu.chapter_position, qu.text
		FROM user_chapters c
		LEFT JOIN user_questions qu ON qu.chapter_id = c.id
		WHERE c.user_id=$1
		ORDER BY c.position, c.id, qu.chapter_position, qu.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list structure: %w", err)
	}
	defer rows.Close()

	var out []structureRow
	for rows.Next() {
		var r structureRow
		if err := rows.Scan(&r.ChapterID, &r.ChapterPosition, &r.Title, &r.QuestionID, &r.QuestionChapPos, &r.Text); err != nil {
			return nil, fmt.Errorf("scan structure: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListUsers returns every user that owns a chapter or a question.
func (s *SQLStore) ListUsers(ctx context.Context, q db.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT user_id FROM user_questions
		UNION SELECT user_id FROM user_chapters
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LockUser serializes the user's transactions on PostgreSQL.
func (s *SQLStore) LockUser(ctx context.Context, q db.Querier, userID string) error {
	return db.AdvisoryLock(ctx, q, s.driver, userID)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
