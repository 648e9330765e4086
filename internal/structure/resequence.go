package structure

import (
	"context"
	"sort"

	"github.com/mind-engage/interviewbook/internal/db"
)

// Resequence recomputes dense zero-based positions for the user's chapters
// and questions. Questions are ranked by
// (chapter position, chapter_position, position, id); only rows whose stored
// values differ from the computed ones are written, so a second call on
// unchanged data performs no writes.
func (e *Engine) Resequence(ctx context.Context, q db.Querier, userID string) (ResequenceResult, error) {
	var res ResequenceResult

	chapters, err := e.store.ListChapters(ctx, q, userID) // ordered by position, id
	if err != nil {
		return res, err
	}
	for i, c := range chapters {
		if c.Position == i {
			continue
		}
		if err := e.store.UpdateChapterPosition(ctx, q, c.ID, i); err != nil {
			return res, err
		}
		res.ChapterWrites++
	}

	rows, err := e.store.ListSequence(ctx, q, userID)
	if err != nil {
		return res, err
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ChapterOrder != b.ChapterOrder {
			return a.ChapterOrder < b.ChapterOrder
		}
		if a.ChapterPosition != b.ChapterPosition {
			return a.ChapterPosition < b.ChapterPosition
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})

	perChapter := map[int64]int{} // chapter id (0 for none) -> next chapter_position
	for i, r := range rows {
		key := int64(0)
		if r.ChapterID.Valid {
			key = r.ChapterID.Int64
		}
		cp := perChapter[key]
		perChapter[key] = cp + 1

		if r.ChapterPosition == cp && r.Position == i {
			continue
		}
		if err := e.store.UpdateQuestionPositions(ctx, q, r.ID, cp, i); err != nil {
			return res, err
		}
		res.QuestionWrites++
	}
	res.Total = len(rows)
	return res, nil
}
