package application

import (
	"net/http"
	"testing"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubController struct{ key string }

func (c stubController) Key() string { return c.key }

func (c stubController) Register(r *mux.Router) {
	r.HandleFunc(c.key, func(http.ResponseWriter, *http.Request) {})
}

type stubService struct{ name string }

type stubModule struct {
	name string
	err  error
}

func (m stubModule) Name() string { return m.name }

func (m stubModule) Register(app Application) error {
	if m.err != nil {
		return m.err
	}
	app.RegisterServices(&stubService{name: m.name})
	app.RegisterControllers(stubController{key: "/" + m.name})
	return nil
}

func TestApplication_Registry(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	require.NoError(t, Load(app, stubModule{name: "tasks"}))

	svc, ok := app.Service(stubService{}).(*stubService)
	require.True(t, ok)
	assert.Equal(t, "tasks", svc.name)

	app.RegisterControllers(stubController{key: "/a"}, stubController{key: "/tasks"})
	controllers := app.Controllers()
	require.Len(t, controllers, 2)
	assert.Equal(t, "/a", controllers[0].Key())
	assert.Equal(t, "/tasks", controllers[1].Key())

	assert.Panics(t, func() { app.Service(struct{}{}) })
}

func TestLoad_StopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := Load(New(&ApplicationOptions{}), stubModule{name: "broken", err: boom})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
}
