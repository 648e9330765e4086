package structure

import (
	"context"

	"github.com/mind-engage/interviewbook/internal/db"
)

// Load repairs the user's structure (bootstrap, then resequence) and reads
// it back. A load can therefore write; the report says what it wrote.
func (e *Engine) Load(ctx context.Context, q db.Querier, userID string) (Structure, RepairReport, error) {
	rep := RepairReport{UserID: userID}
	b, err := e.Bootstrap(ctx, q, userID)
	if err != nil {
		return Structure{}, rep, err
	}
	rep.addBootstrap(b)
	res, err := e.Resequence(ctx, q, userID)
	if err != nil {
		return Structure{}, rep, err
	}
	rep.addResequence(res)
	st, err := e.Read(ctx, q, userID)
	return st, rep, err
}

// Read builds the read model without repairing. Indexes are assigned by
// walking chapters in position order and their questions in chapter order,
// so the flat list is dense and zero-based even if the stored positions are not.
func (e *Engine) Read(ctx context.Context, q db.Querier, userID string) (Structure, error) {
	rows, err := e.store.ListStructure(ctx, q, userID)
	if err != nil {
		return Structure{}, err
	}

	out := Structure{Chapters: []ChapterView{}, Questions: []QuestionView{}}
	index := 0
	var cur *ChapterView
	for _, r := range rows {
		if cur == nil || cur.ID != r.ChapterID {
			out.Chapters = append(out.Chapters, ChapterView{
				ID:         r.ChapterID,
				Position:   r.ChapterPosition,
				Title:      nullableTitle(r.Title.Valid, r.Title.String),
				StartIndex: index,
				Questions:  []QuestionView{},
			})
			cur = &out.Chapters[len(out.Chapters)-1]
		}
		if !r.QuestionID.Valid {
			continue
		}
		qv := QuestionView{
			ID:              r.QuestionID.Int64,
			Index:           index,
			ChapterID:       r.ChapterID,
			ChapterPosition: cur.QuestionCount,
			Text:            r.Text.String,
		}
		cur.Questions = append(cur.Questions, qv)
		cur.QuestionCount++
		out.Questions = append(out.Questions, qv)
		index++
	}
	out.TotalQuestions = index
	return out, nil
}

func nullableTitle(valid bool, s string) *string {
	if !valid {
		return nil
	}
	return &s
}
