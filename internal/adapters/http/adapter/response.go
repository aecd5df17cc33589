package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
)

const contentTypeJSON = "application/json"

// InvalidStatusError - handler вернул код вне [100,599].
type InvalidStatusError struct {
	Status int
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("handler returned invalid status code %d", e.Status)
}

// InvalidResponseError - тело нельзя отдать с заявленным Content-Type
// или не удалось сериализовать в JSON.
type InvalidResponseError struct {
	Reason string
	Err    error
}

func (e *InvalidResponseError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// BuildResponse превращает Result handler в Response.
//
// Порядок заголовков: значения по умолчанию, затем base (CORS, request id),
// затем заголовки handler. Побеждает handler.
func BuildResponse(res common.Result, base map[string]string) (*common.Response, error) {
	if res.Status < 100 || res.Status > 599 {
		return nil, &InvalidStatusError{Status: res.Status}
	}

	callerHeaders := lowerKeys(res.Headers)

	if res.Status == http.StatusNoContent || res.Status == http.StatusNotModified {
		return &common.Response{
			StatusCode: res.Status,
			Headers:    mergeHeaders(nil, base, callerHeaders),
		}, nil
	}

	if ct, ok := callerHeaders["content-type"]; ok && !strings.Contains(strings.ToLower(ct), contentTypeJSON) {
		body, err := rawBody(res.Body)
		if err != nil {
			return nil, err
		}
		return &common.Response{
			StatusCode: res.Status,
			Headers:    mergeHeaders(nil, base, callerHeaders),
			Body:       body,
		}, nil
	}

	body := jsonBody(res.Status, res.Body)

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &InvalidResponseError{Reason: "failed to encode response body", Err: err}
	}

	return &common.Response{
		StatusCode: res.Status,
		Headers:    mergeHeaders(map[string]string{"content-type": contentTypeJSON}, base, callerHeaders),
		Body:       string(encoded),
	}, nil
}

// jsonBody приводит тело к конверту. Для 4xx/5xx допустим только
// ErrorEnvelope: любое другое тело заменяется текстом статуса.
func jsonBody(status int, body any) any {
	if status >= http.StatusBadRequest {
		switch env := body.(type) {
		case common.ErrorEnvelope:
			return env
		case *common.ErrorEnvelope:
			if env != nil {
				return *env
			}
		}
		msg := http.StatusText(status)
		if msg == "" {
			msg = "Request failed"
		}
		return common.ErrorEnvelope{Error: msg}
	}

	if _, ok := body.(common.Envelope); !ok {
		return common.DataEnvelope[any]{Data: body}
	}
	return body
}

// errorResponse собирает ответ с ErrorEnvelope. Не может завершиться ошибкой.
func errorResponse(status int, envelope common.ErrorEnvelope, base map[string]string) *common.Response {
	encoded, err := json.Marshal(envelope)
	if err != nil {
		encoded = []byte(`{"error":"Internal server error"}`)
	}
	return &common.Response{
		StatusCode: status,
		Headers:    mergeHeaders(map[string]string{"content-type": contentTypeJSON}, base),
		Body:       string(encoded),
	}
}

func rawBody(body any) (string, error) {
	switch b := body.(type) {
	case nil:
		return "", nil
	case string:
		return b, nil
	case []byte:
		return string(b), nil
	default:
		return "", &InvalidResponseError{
			Reason: fmt.Sprintf("body of type %T cannot be sent with a non-JSON content-type", body),
		}
	}
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

func mergeHeaders(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}
