package structure

import (
	"context"
	"errors"

	"github.com/mind-engage/interviewbook/internal/db"
)

// Engine runs the repair passes (bootstrap, resequence, prune) and the
// structure read on whatever Querier it is handed. It holds no per-user
// state and is safe for concurrent use.
type Engine struct {
	store *SQLStore
}

func NewEngine(store *SQLStore) *Engine {
	return &Engine{store: store}
}

// BootstrapResult reports what a bootstrap pass wrote.
type BootstrapResult struct {
	Chapters       []Chapter
	CreatedDefault bool
	Assigned       int
	Resequence     ResequenceResult
}

// Bootstrap makes sure the user owns at least one chapter and that every
// question is attached to a chapter. Legacy questions are adopted as they
// are, duplicate texts included; text uniqueness is only enforced for new
// inserts.
func (e *Engine) Bootstrap(ctx context.Context, q db.Querier, userID string) (BootstrapResult, error) {
	var out BootstrapResult
	chapters, err := e.store.ListChapters(ctx, q, userID)
	if err != nil {
		return out, err
	}

	var (
		target   Chapter
		pending  []Question
		startPos int
	)
	if len(chapters) == 0 {
		created, err := e.store.InsertDefaultChapter(ctx, q, userID)
		if err != nil {
			return out, err
		}
		out.CreatedDefault = created
		if chapters, err = e.store.ListChapters(ctx, q, userID); err != nil {
			return out, err
		}
		if len(chapters) == 0 {
			return out, errors.New("bootstrap: default chapter missing after insert")
		}
		target = chapters[0]
		// every question moves into the new chapter, in prior global order
		if pending, err = e.store.ListQuestions(ctx, q, userID, false); err != nil {
			return out, err
		}
	} else {
		if pending, err = e.store.ListQuestions(ctx, q, userID, true); err != nil {
			return out, err
		}
		if len(pending) == 0 {
			out.Chapters = chapters
			return out, nil
		}
		target = chapters[0]
		max, err := e.store.MaxChapterPosition(ctx, q, target.ID)
		if err != nil {
			return out, err
		}
		startPos = max + 1
	}

	out.Chapters = chapters
	if len(pending) == 0 {
		return out, nil
	}
	for i, qu := range pending {
		if err := e.store.AssignQuestion(ctx, q, qu.ID, target.ID, startPos+i); err != nil {
			return out, err
		}
	}
	out.Assigned = len(pending)

	if out.Resequence, err = e.Resequence(ctx, q, userID); err != nil {
		return out, err
	}
	out.Chapters, err = e.store.ListChapters(ctx, q, userID)
	return out, err
}
