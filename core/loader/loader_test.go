package loader

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeature struct {
	name    string
	enabled bool
	err     error
}

func (f *stubFeature) Name() string    { return f.name }
func (f *stubFeature) IsEnabled() bool { return f.enabled }
func (f *stubFeature) Load(app fiber.Router) error {
	if f.err != nil {
		return f.err
	}
	app.Get("/"+f.name, func(c *fiber.Ctx) error { return c.SendString(f.name) })
	return nil
}

func TestManager_LoadAll(t *testing.T) {
	m := NewManager()
	m.Register(&stubFeature{name: "alpha", enabled: true})
	m.Register(&stubFeature{name: "beta", enabled: false})
	m.Register(&stubFeature{name: "gamma", enabled: true})

	app := fiber.New()
	loaded, err := m.LoadAll(app)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "gamma"}, loaded)
	assert.Len(t, m.Features(), 3)

	resp, err := app.Test(httptest.NewRequest("GET", "/alpha", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/beta", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestManager_LoadAllError(t *testing.T) {
	m := NewManager()
	m.Register(&stubFeature{name: "ok", enabled: true})
	m.Register(&stubFeature{name: "broken", enabled: true, err: errors.New("boom")})
	m.Register(&stubFeature{name: "never", enabled: true})

	loaded, err := m.LoadAll(fiber.New())
	assert.ErrorContains(t, err, "failed to load feature broken: boom")
	assert.Equal(t, []string{"ok"}, loaded)
}
