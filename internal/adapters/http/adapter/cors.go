package adapter

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSOptions - настройки CORS. Незаполненные поля берутся из значений
// по умолчанию (см. defaultCORS).
type CORSOptions struct {
	// AllowOrigins - разрешённые origins, "*" - любые.
	AllowOrigins []string
	// AllowMethods - разрешённые HTTP методы.
	AllowMethods []string
	// AllowHeaders - разрешённые заголовки запроса.
	AllowHeaders []string
	// ExposeHeaders - заголовки ответа, доступные клиенту.
	ExposeHeaders []string
	// AllowCredentials - разрешить cookies и Authorization.
	AllowCredentials bool
	// MaxAge - время кеширования preflight в секундах, 0 - не отправлять.
	MaxAge int
}

func defaultCORS() CORSOptions {
	return CORSOptions{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}
}

// corsPolicy - CORSOptions с заранее собранными значениями заголовков.
type corsPolicy struct {
	enabled       bool
	allowAll      bool
	origins       map[string]bool
	allowMethods  string
	allowHeaders  string
	exposeHeaders string
	maxAge        string
	credentials   bool
}

func newCORSPolicy(opts *CORSOptions) corsPolicy {
	if opts == nil {
		return corsPolicy{}
	}

	merged := defaultCORS()
	if len(opts.AllowOrigins) > 0 {
		merged.AllowOrigins = opts.AllowOrigins
	}
	if len(opts.AllowMethods) > 0 {
		merged.AllowMethods = opts.AllowMethods
	}
	if len(opts.AllowHeaders) > 0 {
		merged.AllowHeaders = opts.AllowHeaders
	}
	merged.ExposeHeaders = opts.ExposeHeaders
	merged.AllowCredentials = opts.AllowCredentials
	merged.MaxAge = opts.MaxAge

	p := corsPolicy{
		enabled:       true,
		origins:       make(map[string]bool, len(merged.AllowOrigins)),
		allowMethods:  strings.Join(merged.AllowMethods, ","),
		allowHeaders:  strings.Join(merged.AllowHeaders, ", "),
		exposeHeaders: strings.Join(merged.ExposeHeaders, ", "),
		credentials:   merged.AllowCredentials,
	}
	if merged.MaxAge > 0 {
		p.maxAge = strconv.Itoa(merged.MaxAge)
	}
	for _, origin := range merged.AllowOrigins {
		if origin == "*" {
			p.allowAll = true
			continue
		}
		p.origins[origin] = true
	}

	return p
}

// headers возвращает CORS заголовки ответа для данного Origin запроса.
//
// Vary: Origin добавляется всегда, иначе общий кеш отдаст ответ
// для одного origin другому. Origin не из списка получает только Vary.
func (p corsPolicy) headers(origin string) map[string]string {
	if !p.enabled {
		return map[string]string{}
	}

	out := map[string]string{"vary": "Origin"}

	var allowed string
	switch {
	case p.allowAll && p.credentials && origin != "":
		// "*" вместе с credentials браузеры отвергают.
		allowed = origin
	case p.allowAll:
		allowed = "*"
	case p.origins[origin]:
		allowed = origin
	default:
		return out
	}

	out["access-control-allow-origin"] = allowed
	out["access-control-allow-methods"] = p.allowMethods
	out["access-control-allow-headers"] = p.allowHeaders
	if p.exposeHeaders != "" {
		out["access-control-expose-headers"] = p.exposeHeaders
	}
	if p.maxAge != "" {
		out["access-control-max-age"] = p.maxAge
	}
	if p.credentials {
		out["access-control-allow-credentials"] = "true"
	}
	return out
}

// CORSHeaders вычисляет CORS заголовки без создания Adapter.
func CORSHeaders(opts *CORSOptions, origin string) map[string]string {
	return newCORSPolicy(opts).headers(origin)
}
