package httpx

import (
	"errors"
	"net/http"
)

// Generic sentinels for handlers that do not carry their own domain errors.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// Mapping pairs a sentinel error with the problem it should produce.
type Mapping struct {
	Target error
	Status int
	Title  string
}

// fieldMapper is implemented by validation errors that name offending fields.
type fieldMapper interface {
	FieldMap() map[string]string
}

var defaultMappings = []Mapping{
	{Target: ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
	{Target: ErrConflict, Status: http.StatusConflict, Title: "Conflict"},
	{Target: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
}

// RespondError maps err to an RFC7807 response. Caller mappings are checked
// before the package defaults; anything unmatched becomes a 500 with no detail.
func RespondError(w http.ResponseWriter, err error, mappings ...Mapping) {
	for _, m := range append(mappings, defaultMappings...) {
		if !errors.Is(err, m.Target) {
			continue
		}
		problem := ProblemDetail{Title: m.Title, Status: m.Status, Detail: err.Error()}
		var fm fieldMapper
		if errors.As(err, &fm) {
			problem.Errors = fm.FieldMap()
		}
		writeProblem(w, problem)
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
