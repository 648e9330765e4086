package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/interviewbook/internal/structure"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// maxBody caps request bodies; bulk question pastes are the largest input.
const maxBody = 1 << 20

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Constraint string `json:"constraint,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorBody{Error: code, Message: msg})
}

// respondDomainError maps a classified structure error to a status code.
// Internal details never reach the client; the service has logged them.
func respondDomainError(w http.ResponseWriter, err error) {
	var se *structure.Error
	if !errors.As(err, &se) {
		respondError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	status := http.StatusInternalServerError
	switch se.Kind {
	case structure.KindNotFound:
		status = http.StatusNotFound
	case structure.KindValidation:
		status = http.StatusBadRequest
	case structure.KindConflict:
		status = http.StatusConflict
	}
	body := errorBody{Error: se.Code, Message: se.Message, Constraint: se.Constraint}
	if se.Kind == structure.KindInternal {
		body = errorBody{Error: "INTERNAL", Message: "internal error"}
	}
	respondJSON(w, status, body)
}

// decode reads a JSON body and runs struct validation. An empty body decodes
// to the zero value.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "BAD_JSON", "bad json")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_FAILED", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		parts = append(parts, fe.Namespace()+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}
