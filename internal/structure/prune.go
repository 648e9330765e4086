package structure

import (
	"context"

	"github.com/mind-engage/interviewbook/internal/db"
)

// Prune deletes the user's answers whose question index is >= total.
//
// Answers bind to a position, not to a question id: an answer recorded at
// index 5 stays attached to whatever question occupies index 5 after a change.
func (e *Engine) Prune(ctx context.Context, q db.Querier, userID string, total int) (int64, error) {
	return e.store.DeleteAnswersFrom(ctx, q, userID, total)
}
