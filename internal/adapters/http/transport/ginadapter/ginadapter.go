// Package ginadapter подключает adapter к gin для локального и
// долгоживущего запуска. Handler тот же, что и в Lambda.
package ginadapter

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/edgeapi/internal/adapters/http/adapter"
	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
)

// Handler возвращает gin.HandlerFunc, который прогоняет запрос через adapter.
// Регистрируется через router.Any: проверку метода делает adapter.
func Handler(a *adapter.Adapter, route string, routes common.Routes) gin.HandlerFunc {
	handle := a.Wrap(route, routes)

	return func(c *gin.Context) {
		Write(c, handle(c.Request.Context(), Inbound(c)))
	}
}

// Inbound собирает adapter.Inbound из gin.Context.
func Inbound(c *gin.Context) adapter.Inbound {
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}

	var body io.Reader
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		body = c.Request.Body
	}

	return adapter.Inbound{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Headers:       c.Request.Header,
		Query:         c.Request.URL.Query(),
		PathParams:    params,
		Body:          body,
		ContentLength: c.Request.ContentLength,
		Raw:           c,
	}
}

// Write отдаёт common.Response клиенту.
func Write(c *gin.Context, resp *common.Response) {
	for key, value := range resp.Headers {
		c.Header(key, value)
	}

	if resp.Body == "" {
		c.Status(resp.StatusCode)
		c.Writer.WriteHeaderNow()
		return
	}

	c.Data(resp.StatusCode, resp.Headers["content-type"], []byte(resp.Body))
}
