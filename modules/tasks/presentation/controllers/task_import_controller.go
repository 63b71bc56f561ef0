package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
	"github.com/iota-uz/sprintboard/modules/tasks/services"
	"github.com/iota-uz/sprintboard/pkg/application"
	"github.com/iota-uz/sprintboard/pkg/constants"
	"github.com/iota-uz/sprintboard/pkg/httpapi"
)

// multipart overhead allowed on top of the configured file limit
const uploadSlack = 1 << 20

type TaskImportController struct {
	importService *services.TaskImportService
	basePath      string
}

func NewTaskImportController(app application.Application) application.Controller {
	return &TaskImportController{
		importService: app.Service(services.TaskImportService{}).(*services.TaskImportService),
		basePath:      "/tasks/import",
	}
}

func (c *TaskImportController) Key() string {
	return c.basePath
}

func (c *TaskImportController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.Upload).Methods(http.MethodPost)
	router.HandleFunc("/{session}", c.Preview).Methods(http.MethodGet)
	router.HandleFunc("/{session}", c.Discard).Methods(http.MethodDelete)
	router.HandleFunc("/{session}/revalidate", c.Revalidate).Methods(http.MethodPost)
	router.HandleFunc("/{session}/merged", c.Merged).Methods(http.MethodGet)
	router.HandleFunc("/{session}/commit", c.Commit).Methods(http.MethodPost)
	router.HandleFunc("/{session}/rows/{row:[0-9]+}/ignore", c.ToggleIgnore).Methods(http.MethodPost)
	router.HandleFunc("/{session}/rows/{row:[0-9]+}", c.EditCell).Methods(http.MethodPatch)
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["session"])
	if err != nil {
		return uuid.Nil, errors.Wrap(services.ErrSessionNotFound, "malformed session id")
	}
	return id, nil
}

func rowIndex(r *http.Request) int {
	row, _ := strconv.Atoi(mux.Vars(r)["row"])
	return row
}

func (c *TaskImportController) Upload(w http.ResponseWriter, r *http.Request) {
	if limit := c.importService.MaxUploadSize(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+uploadSlack)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, r, errors.Wrap(services.ErrFileTooLarge, err.Error()))
			return
		}
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, "missing file", nil)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	session := uuid.Nil
	if raw := r.FormValue("session"); raw != "" {
		if session, err = uuid.Parse(raw); err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, "malformed session id", nil)
			return
		}
	}

	preview, err := c.importService.Parse(r.Context(), session, header.Filename, data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if session != uuid.Nil {
		status = http.StatusOK
	}
	_ = httpapi.WriteJSON(w, status, preview)
}

func (c *TaskImportController) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	preview, err := c.importService.Preview(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, preview)
}

func (c *TaskImportController) Revalidate(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	preview, err := c.importService.Revalidate(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, preview)
}

func (c *TaskImportController) ToggleIgnore(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	row := rowIndex(r)
	ignored, err := c.importService.ToggleIgnore(id, row)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, IgnoreResponse{Row: row, Ignored: ignored})
}

func (c *TaskImportController) EditCell(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var dto EditCellDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
		return
	}
	if err := constants.Validate.Struct(&dto); err != nil {
		_ = httpapi.WriteValidationError(w, err)
		return
	}
	if err := c.importService.EditCell(id, rowIndex(r), dto.Field, dto.Value); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *TaskImportController) Merged(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	merged, err := c.importService.Merged(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, merged)
}

func (c *TaskImportController) Commit(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var dto CommitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
		return
	}
	if err := constants.Validate.Struct(&dto); err != nil {
		_ = httpapi.WriteValidationError(w, err)
		return
	}
	res, err := c.importService.Commit(r.Context(), id, task.ImportMode(dto.Mode))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, res)
}

func (c *TaskImportController) Discard(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.importService.Discard(id)
	w.WriteHeader(http.StatusNoContent)
}
