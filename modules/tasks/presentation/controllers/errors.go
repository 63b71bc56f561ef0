package controllers

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
	"github.com/iota-uz/sprintboard/modules/tasks/services"
	"github.com/iota-uz/sprintboard/modules/tasks/services/taskimport"
	"github.com/iota-uz/sprintboard/pkg/composables"
	"github.com/iota-uz/sprintboard/pkg/httpapi"
)

// writeServiceError maps domain errors onto HTTP statuses. Anything unknown
// is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		_ = httpapi.WriteValidationError(w, err)
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, taskimport.ErrUnknownRow):
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, err.Error(), nil)
	case errors.Is(err, taskimport.ErrUnknownField),
		errors.Is(err, task.ErrInvalidImportMode),
		errors.Is(err, services.ErrEmptyUpload):
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrFileTooLarge):
		_ = httpapi.WriteError(w, http.StatusRequestEntityTooLarge, httpapi.CodeTooLarge, err.Error(), nil)
	case errors.Is(err, taskimport.ErrNotImportable),
		errors.Is(err, services.ErrCommitInProgress),
		errors.Is(err, taskimport.ErrNoDefaultProject),
		errors.Is(err, taskimport.ErrNoDefaultSprint),
		errors.Is(err, member.ErrNameTaken):
		_ = httpapi.WriteError(w, http.StatusConflict, httpapi.CodeConflict, err.Error(), nil)
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("request failed")
		meta := map[string]string{}
		if id, ok := composables.UseRequestID(r.Context()); ok {
			meta["request_id"] = id
		}
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "internal server error", meta)
	}
}
