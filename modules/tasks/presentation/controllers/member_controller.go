package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
	"github.com/iota-uz/sprintboard/modules/tasks/services"
	"github.com/iota-uz/sprintboard/pkg/application"
	"github.com/iota-uz/sprintboard/pkg/httpapi"
)

type MemberController struct {
	memberService *services.MemberService
	basePath      string
}

func NewMemberController(app application.Application) application.Controller {
	return &MemberController{
		memberService: app.Service(services.MemberService{}).(*services.MemberService),
		basePath:      "/tasks/members",
	}
}

func (c *MemberController) Key() string {
	return c.basePath
}

func (c *MemberController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.List).Methods(http.MethodGet)
	r.HandleFunc(c.basePath, c.Create).Methods(http.MethodPost)
}

func (c *MemberController) List(w http.ResponseWriter, r *http.Request) {
	members, err := c.memberService.GetAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, members)
}

func (c *MemberController) Create(w http.ResponseWriter, r *http.Request) {
	var dto member.CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
		return
	}
	created, err := c.memberService.Create(r.Context(), &dto)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}
