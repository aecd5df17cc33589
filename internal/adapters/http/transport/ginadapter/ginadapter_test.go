package ginadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haleralex/edgeapi/internal/adapters/http/adapter"
	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAdapter(cfg adapter.Config) *adapter.Adapter {
	return adapter.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandler_PassesNormalizedRequest(t *testing.T) {
	var seen *common.Request
	routes := common.Routes{
		common.MethodPost: func(ctx context.Context, req *common.Request) (common.Result, error) {
			seen = req
			return common.Created(map[string]string{"id": req.Param("id")}), nil
		},
	}

	router := gin.New()
	router.Any("/v1/things/:id", Handler(newAdapter(adapter.DefaultConfig()), "things.item", routes))

	body := `{"name":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/things/42?tag=a&tag=b&limit=5", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Custom", "yes")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"data":{"id":"42"}}`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	require.NotNil(t, seen)
	assert.Equal(t, common.MethodPost, seen.Method())
	assert.Equal(t, "/v1/things/42", seen.Path())
	assert.Equal(t, "a", seen.Query("tag"))
	assert.Equal(t, "5", seen.Query("limit"))
	assert.Equal(t, "yes", seen.Header("x-custom"))
	assert.Equal(t, map[string]any{"name": "x"}, seen.Body())
	assert.Equal(t, []byte(body), seen.RawBody())

	_, isGin := seen.Raw().(*gin.Context)
	assert.True(t, isGin)
}

func TestHandler_NoContent(t *testing.T) {
	routes := common.Routes{
		common.MethodDelete: func(ctx context.Context, req *common.Request) (common.Result, error) {
			return common.NoContent(), nil
		},
	}

	router := gin.New()
	router.Any("/v1/things/:id", Handler(newAdapter(adapter.DefaultConfig()), "things.item", routes))

	req := httptest.NewRequest(http.MethodDelete, "/v1/things/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header().Get("Content-Type"))
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	routes := common.Routes{
		common.MethodGet: func(ctx context.Context, req *common.Request) (common.Result, error) {
			return common.OK("ok"), nil
		},
	}

	router := gin.New()
	router.Any("/v1/things", Handler(newAdapter(adapter.DefaultConfig()), "things", routes))

	req := httptest.NewRequest(http.MethodPut, "/v1/things", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Allow"))
}

func TestHandler_PayloadTooLarge(t *testing.T) {
	cfg := adapter.DefaultConfig()
	cfg.MaxBodySize = 8

	calls := 0
	routes := common.Routes{
		common.MethodPost: func(ctx context.Context, req *common.Request) (common.Result, error) {
			calls++
			return common.OK("ok"), nil
		},
	}

	router := gin.New()
	router.Any("/v1/things", Handler(newAdapter(cfg), "things", routes))

	req := httptest.NewRequest(http.MethodPost, "/v1/things", strings.NewReader(`{"name":"far too long"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, calls)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Request body exceeds 8 bytes", body["error"])
}

func TestHandler_Preflight(t *testing.T) {
	cfg := adapter.DefaultConfig()
	cfg.CORS = &adapter.CORSOptions{AllowOrigins: []string{"https://app.example.com"}}

	router := gin.New()
	router.Any("/v1/things", Handler(newAdapter(cfg), "things", common.Routes{}))

	req := httptest.NewRequest(http.MethodOptions, "/v1/things", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestInbound_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/things?x=1", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	in := Inbound(c)

	assert.Nil(t, in.Body)
	assert.Equal(t, "GET", in.Method)
	assert.Equal(t, map[string]string{"id": "7"}, in.PathParams)
	assert.Equal(t, []string{"1"}, in.Query["x"])
}
