package http

import (
	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/interviewbook/internal/auth/middleware"
	"github.com/mind-engage/interviewbook/internal/rbac"
)

type Deps struct {
	Auth      *authmw.AuthService
	Structure StructureService
	Answers   AnswerService
}

// MountAPI registers the authenticated /api routes on r.
func MountAPI(r chi.Router, d Deps) {
	r.Route("/api", func(ar chi.Router) {
		ar.Use(authmw.JWTMiddleware(d.Auth))

		// the caller's own interview
		ar.With(rbac.Require(rbac.ViewOwnStructure)).Get("/structure", GetMyStructureHandler(d.Structure))
		ar.With(rbac.Require(rbac.ViewOwnStructure)).Get("/questions", ListMyQuestionsHandler(d.Structure))
		ar.With(rbac.Require(rbac.ViewOwnAnswers)).Get("/answers", GetMyAnswersHandler(d.Answers))
		ar.With(rbac.Require(rbac.SaveOwnAnswers)).Post("/answers", SaveMyAnswersHandler(d.Answers))

		ar.With(rbac.RequireOwnerOr(rbac.ViewAnyStructure, IsOwner)).
			Get("/users/{userID}/structure", GetUserStructureHandler(d.Structure))

		ar.Route("/admin/users/{userID}", func(adm chi.Router) {
			adm.With(rbac.Require(rbac.ViewAnyStructure)).Get("/structure", GetUserStructureHandler(d.Structure))
			adm.With(rbac.Require(rbac.ViewAnyAnswers)).Get("/answers", GetUserAnswersHandler(d.Answers))
			adm.With(rbac.Require(rbac.ViewAnyStructure)).Get("/events", ListEventsHandler(d.Structure))
			adm.With(rbac.Require(rbac.EditStructure)).Post("/chapters", CreateChapterHandler(d.Structure))
			adm.With(rbac.Require(rbac.EditStructure)).Post("/questions", UpsertQuestionsHandler(d.Structure))
			adm.With(rbac.Require(rbac.EditStructure)).Delete("/questions/{questionID}", DeleteQuestionHandler(d.Structure))
		})
	})
}
