// Package common содержит общие типы границы HTTP слоя.
//
// Вынесен в отдельный пакет чтобы избежать циклических импортов
// между адаптером, транспортами (gin, lambda) и handlers.
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"maps"
	"strings"
)

// ============================================
// Methods
// ============================================

// Method - HTTP метод, который понимает адаптер.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
)

var knownMethods = map[string]Method{
	"GET":     MethodGet,
	"POST":    MethodPost,
	"PUT":     MethodPut,
	"PATCH":   MethodPatch,
	"DELETE":  MethodDelete,
	"OPTIONS": MethodOptions,
	"HEAD":    MethodHead,
}

// ParseMethod приводит строку к Method. Регистр не важен.
func ParseMethod(s string) (Method, bool) {
	m, ok := knownMethods[strings.ToUpper(strings.TrimSpace(s))]
	return m, ok
}

// HasBody - методы, для которых адаптер читает и разбирает тело.
func (m Method) HasBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

func (m Method) String() string { return string(m) }

// ============================================
// Request
// ============================================

// ErrEmptyBody возвращается Bind, если у запроса нет тела.
var ErrEmptyBody = errors.New("request body is empty")

// RequestParts - всё, из чего собирается Request. Заполняется адаптером.
type RequestParts struct {
	Method     Method
	Path       string
	RawBody    []byte
	Body       any
	Query      map[string]string
	Headers    map[string]string
	PathParams map[string]string
	RequestID  string
	Raw        any
}

// Request - нормализованный входящий запрос.
//
// После создания не изменяется: все map копируются на входе и на выходе,
// поэтому handler не может повлиять на то, что видят другие стадии.
type Request struct {
	method     Method
	path       string
	rawBody    []byte
	body       any
	query      map[string]string
	headers    map[string]string
	pathParams map[string]string
	requestID  string
	raw        any
}

// NewRequest создаёт Request. Ключи заголовков приводятся к нижнему регистру.
func NewRequest(p RequestParts) *Request {
	headers := make(map[string]string, len(p.Headers))
	for k, v := range p.Headers {
		headers[strings.ToLower(k)] = v
	}

	return &Request{
		method:     p.Method,
		path:       p.Path,
		rawBody:    bytes.Clone(p.RawBody),
		body:       p.Body,
		query:      cloneOrEmpty(p.Query),
		headers:    headers,
		pathParams: cloneOrEmpty(p.PathParams),
		requestID:  p.RequestID,
		raw:        p.Raw,
	}
}

func (r *Request) Method() Method    { return r.method }
func (r *Request) Path() string      { return r.path }
func (r *Request) RequestID() string { return r.requestID }

// Raw возвращает исходное событие транспорта
// (events.APIGatewayProxyRequest, *http.Request и т.п.).
func (r *Request) Raw() any { return r.raw }

// Body - разобранное JSON тело или nil, если тела нет.
// Числа представлены как json.Number.
func (r *Request) Body() any { return r.body }

// HasBody сообщает, было ли у запроса непустое тело.
func (r *Request) HasBody() bool { return len(r.rawBody) > 0 }

// RawBody возвращает копию тела.
func (r *Request) RawBody() []byte { return bytes.Clone(r.rawBody) }

// Query возвращает значение параметра строки запроса или "".
func (r *Request) Query(key string) string { return r.query[key] }

// QueryMap возвращает копию всех параметров строки запроса.
func (r *Request) QueryMap() map[string]string { return maps.Clone(r.query) }

// Header ищет заголовок без учёта регистра.
func (r *Request) Header(name string) string { return r.headers[strings.ToLower(name)] }

// Headers возвращает копию заголовков (ключи в нижнем регистре).
func (r *Request) Headers() map[string]string { return maps.Clone(r.headers) }

// Param возвращает параметр пути (например, id из /projects/:id).
func (r *Request) Param(name string) string { return r.pathParams[name] }

// Bind декодирует тело в типизированную структуру.
func (r *Request) Bind(v any) error {
	if len(r.rawBody) == 0 {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(r.rawBody))
	dec.UseNumber()
	return dec.Decode(v)
}

func cloneOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}

// ============================================
// Response
// ============================================

// Response - то, что адаптер отдаёт транспорту.
// Ключи Headers всегда в нижнем регистре.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// ============================================
// Handler contract
// ============================================

// HandlerFunc - бизнес-обработчик, который вызывает адаптер.
type HandlerFunc func(ctx context.Context, req *Request) (Result, error)

// Routes - обработчики по методам одного ресурса.
type Routes map[Method]HandlerFunc
