package common

import "net/http"

// ============================================
// Envelopes
// ============================================

// Envelope - маркер для тел, которые уже имеют форму конверта.
// ResponseBuilder оборачивает в DataEnvelope всё, что его не реализует.
type Envelope interface {
	envelope()
}

// DataEnvelope - успешный ответ с одним ресурсом.
type DataEnvelope[T any] struct {
	Data T `json:"data"`
}

// ListEnvelope - успешный ответ со страницей ресурсов.
// Cursor - смещение, с которого начинается следующая страница.
type ListEnvelope[T any] struct {
	Data    []T  `json:"data"`
	Cursor  int  `json:"cursor"`
	HasMore bool `json:"hasMore"`
}

// ErrorEnvelope - единственная форма тела для 4xx/5xx.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (DataEnvelope[T]) envelope() {}
func (ListEnvelope[T]) envelope() {}
func (ErrorEnvelope) envelope()   {}

// ============================================
// Result
// ============================================

// Result - то, что возвращает handler. Status вне [100,599]
// адаптер заменяет на 500.
type Result struct {
	Status  int
	Body    any
	Headers map[string]string
}

// WithHeader возвращает копию Result с добавленным заголовком.
func (r Result) WithHeader(key, value string) Result {
	headers := make(map[string]string, len(r.Headers)+1)
	for k, v := range r.Headers {
		headers[k] = v
	}
	headers[key] = value
	r.Headers = headers
	return r
}

// OK - 200 с одним ресурсом.
func OK[T any](data T) Result {
	return Result{Status: http.StatusOK, Body: DataEnvelope[T]{Data: data}}
}

// Created - 201 с созданным ресурсом.
func Created[T any](data T) Result {
	return Result{Status: http.StatusCreated, Body: DataEnvelope[T]{Data: data}}
}

// List - 200 со страницей. nil срез отдаётся как [].
func List[T any](data []T, cursor int, hasMore bool) Result {
	if data == nil {
		data = []T{}
	}
	return Result{
		Status: http.StatusOK,
		Body:   ListEnvelope[T]{Data: data, Cursor: cursor, HasMore: hasMore},
	}
}

// NoContent - 204 без тела.
func NoContent() Result {
	return Result{Status: http.StatusNoContent}
}

// Fail - ответ с ошибкой без деталей.
func Fail(status int, message string) Result {
	return Result{Status: status, Body: ErrorEnvelope{Error: message}}
}

// FailWithDetails - ответ с ошибкой и диагностикой.
func FailWithDetails(status int, message, details string) Result {
	return Result{Status: status, Body: ErrorEnvelope{Error: message, Details: details}}
}
