package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/interviewbook/internal/answers"
	authmw "github.com/mind-engage/interviewbook/internal/auth/middleware"
)

type AnswerService interface {
	List(ctx context.Context, userID string) ([]answers.Answer, error)
	Replace(ctx context.Context, userID string, entries []answers.Answer) ([]answers.Answer, error)
}

type answerEntry struct {
	QuestionIndex int    `json:"questionIndex"`
	Text          string `json:"text" validate:"max=20000"`
}

type saveAnswersReq struct {
	Entries []answerEntry `json:"entries" validate:"max=5000,dive"`
}

// GET /api/answers
func GetMyAnswersHandler(svc AnswerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listAnswers(w, r, svc, authmw.SubjectFromContext(r.Context()))
	}
}

// GET /api/admin/users/{userID}/answers
func GetUserAnswersHandler(svc AnswerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listAnswers(w, r, svc, chi.URLParam(r, "userID"))
	}
}

func listAnswers(w http.ResponseWriter, r *http.Request, svc AnswerService, userID string) {
	list, err := svc.List(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": list})
}

// POST /api/answers  { "entries": [{ "questionIndex": 0, "text": "..." }] }
//
// The whole set is replaced. Entries outside the current question range are
// dropped, so the response can be shorter than the request.
func SaveMyAnswersHandler(svc AnswerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveAnswersReq
		if !decode(w, r, &req) {
			return
		}
		entries := make([]answers.Answer, len(req.Entries))
		for i, e := range req.Entries {
			entries[i] = answers.Answer{QuestionIndex: e.QuestionIndex, Text: e.Text}
		}
		saved, err := svc.Replace(r.Context(), authmw.SubjectFromContext(r.Context()), entries)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"entries": saved})
	}
}
