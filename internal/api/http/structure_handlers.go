package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/interviewbook/internal/auth/middleware"
	"github.com/mind-engage/interviewbook/internal/eventlog"
	"github.com/mind-engage/interviewbook/internal/structure"
)

// StructureService is the part of structure.Service the handlers use.
type StructureService interface {
	FetchStructure(ctx context.Context, userID string) (structure.Structure, error)
	CreateChapter(ctx context.Context, userID string, title *string) (structure.ChapterRef, error)
	UpsertQuestions(ctx context.Context, in structure.UpsertInput) (structure.UpsertResult, error)
	DeleteQuestion(ctx context.Context, userID string, questionID int64) (structure.DeleteResult, error)
	Events(ctx context.Context, userID string, after int64, limit int) ([]eventlog.Event, error)
}

// IsOwner reports whether the {userID} path parameter names the caller.
func IsOwner(r *http.Request) bool {
	sub := authmw.SubjectFromContext(r.Context())
	return sub != "" && sub == chi.URLParam(r, "userID")
}

// GET /api/structure
func GetMyStructureHandler(svc StructureService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.FetchStructure(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, st)
	}
}

// GET /api/questions returns only the flat, globally indexed list.
func ListMyQuestionsHandler(svc StructureService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.FetchStructure(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"questions": st.Questions, "total": st.TotalQuestions})
	}
}

// GET /api/users/{userID}/structure
func GetUserStructureHandler(svc StructureService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.FetchStructure(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, st)
	}
}

type createChapterReq struct {
	Title *string `json:"title" validate:"omitempty,max=200"`
}

// POST /api/admin/users/{userID}/chapters  { "title": "Intro" | null }
func CreateChapterHandler(svc StructureService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createChapterReq
		if !decode(w, r, &req) {
			return
		}
		ref, err := svc.CreateChapter(r.Context(), chi.URLParam(r, "userID"), req.Title)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, ref)
	}
}

type upsertQuestionsReq struct {
	Mode      string     `json:"mode"`
	ChapterID flexibleID `json:"chapterId"`
	Questions []string   `json:"questions" validate:"omitempty,dive,max=2000"`
	Bulk      string     `json:"bulk" validate:"max=200000"`
}

// POST /api/admin/users/{userID}/questions
//
//	{ "mode": "append|replace", "chapterId": 3, "questions": ["..."], "bulk": "one\nper\nline" }
//
// questions and bulk are concatenated in that order; mode defaults to append.
func UpsertQuestionsHandler(svc StructureService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req upsertQuestionsReq
		if !decode(w, r, &req) {
			return
		}
		chapterID, err := structure.ParseChapterID(string(req.ChapterID))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		mode := structure.Mode(strings.ToLower(strings.TrimSpace(req.Mode)))
		if mode == "" {
			mode = structure.ModeAppend
		}
		texts := append(structure.NormalizeTexts(req.Questions), structure.SplitBulk(req.Bulk)...)

		res, err := svc.UpsertQuestions(r.Context(), structure.UpsertInput{
			UserID:    chi.URLParam(r, "userID"),
			ChapterID: chapterID,
			Mode:      mode,
			Texts:     texts,
		})
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

// DELETE /api/admin/users/{userID}/questions/{questionID}
func DeleteQuestionHandler(svc StructureService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qid, err := structure.ParseQuestionID(chi.URLParam(r, "questionID"))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		res, err := svc.DeleteQuestion(r.Context(), chi.URLParam(r, "userID"), qid)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

// GET /api/admin/users/{userID}/events?after=0&limit=100
func ListEventsHandler(svc StructureService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, ok := queryInt(w, r, "after")
		if !ok {
			return
		}
		limit, ok := queryInt(w, r, "limit")
		if !ok {
			return
		}
		evs, err := svc.Events(r.Context(), chi.URLParam(r, "userID"), after, int(limit))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"events": evs})
	}
}

// queryInt reads an optional non-negative integer query parameter. On a bad
// value it writes the 400 response and reports false.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_FAILED", name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
