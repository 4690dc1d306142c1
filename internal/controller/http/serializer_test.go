package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpapi "github.com/Egor213/JewelCRM/internal/controller/http"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSerializer(t *testing.T) {
	e := echo.New()
	e.JSONSerializer = httpapi.JSONSerializer{}

	t.Run("serialize", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		require.NoError(t, c.JSON(http.StatusOK, map[string]any{"id": 1, "name": "ring"}))
		assert.JSONEq(t, `{"id":1,"name":"ring"}`, rec.Body.String())
	})

	t.Run("deserialize", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ring"}`))
		c := e.NewContext(req, httptest.NewRecorder())

		var got struct {
			Name string `json:"name"`
		}
		require.NoError(t, e.JSONSerializer.Deserialize(c, &got))
		assert.Equal(t, "ring", got.Name)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		c := e.NewContext(req, httptest.NewRecorder())

		var got map[string]any
		err := e.JSONSerializer.Deserialize(c, &got)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	})
}
