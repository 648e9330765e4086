package structure

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mind-engage/interviewbook/internal/db"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified failure. Code is stable and meant for clients.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	Constraint string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Code + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so that wrapped copies still compare equal to the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrChapterNotFound   = &Error{Kind: KindNotFound, Code: "CHAPTER_NOT_FOUND", Message: "chapter not found"}
	ErrQuestionNotFound  = &Error{Kind: KindNotFound, Code: "QUESTION_NOT_FOUND", Message: "question not found"}
	ErrNoQuestions       = &Error{Kind: KindValidation, Code: "NO_QUESTIONS", Message: "at least one question is required in append mode"}
	ErrInvalidMode       = &Error{Kind: KindValidation, Code: "INVALID_MODE", Message: "mode must be append or replace"}
	ErrInvalidChapterID  = &Error{Kind: KindValidation, Code: "INVALID_CHAPTER_ID", Message: "chapter id must be a positive integer"}
	ErrInvalidQuestionID = &Error{Kind: KindValidation, Code: "INVALID_QUESTION_ID", Message: "question id must be a positive integer"}
	ErrTooManyQuestions  = &Error{Kind: KindValidation, Code: "TOO_MANY_QUESTIONS", Message: "too many questions in one request"}
	ErrMissingUser       = &Error{Kind: KindValidation, Code: "MISSING_USER", Message: "user id is required"}
	ErrDuplicateQuestion = &Error{Kind: KindConflict, Code: "DUPLICATE_QUESTION", Message: "question text already exists in this chapter", Constraint: db.ConstraintQuestionText}
)

func duplicateQuestion(text string) error {
	return &Error{
		Kind:       KindConflict,
		Code:       ErrDuplicateQuestion.Code,
		Message:    fmt.Sprintf("question %q already exists in this chapter", text),
		Constraint: db.ConstraintQuestionText,
	}
}

// checkDuplicates fails on the first text that repeats within texts or is
// already in existing.
func checkDuplicates(texts []string, existing map[string]bool) error {
	seen := make(map[string]bool, len(texts))
	for _, t := range texts {
		if seen[t] || existing[t] {
			return duplicateQuestion(t)
		}
		seen[t] = true
	}
	return nil
}

// KindOf classifies any error; unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ParseChapterID parses a client supplied chapter id.
func ParseChapterID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidChapterID
	}
	return id, nil
}

// ParseQuestionID parses a client supplied question id.
func ParseQuestionID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidQuestionID
	}
	return id, nil
}

// translate maps storage constraint violations to domain errors. Domain
// errors pass through; anything else is reported as internal.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	if v, ok := db.ClassifyConstraint(err); ok {
		switch {
		case v.Kind == db.ConstraintUnique:
			return &Error{Kind: KindConflict, Code: "CONFLICT", Message: "conflicting concurrent change, retry", Constraint: v.Name, Err: err}
		case v.Kind == db.ConstraintForeignKey:
			return &Error{Kind: KindValidation, Code: "INVALID_REFERENCE", Message: "referenced chapter does not exist", Constraint: v.Name, Err: err}
		}
	}
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: "structure update failed", Err: err}
}
