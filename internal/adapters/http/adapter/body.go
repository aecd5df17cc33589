package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
)

// Имена ошибок тела запроса.
const (
	ErrNamePayloadTooLarge    = "PayloadTooLarge"
	ErrNameInvalidContentType = "InvalidContentType"
	ErrNameInvalidJSON        = "InvalidJSON"
	ErrNameBodyRead           = "BodyReadFailed"
)

// BodyError - ошибка чтения или разбора тела запроса.
type BodyError struct {
	Name    string
	Message string
	Details string
}

func (e *BodyError) Error() string {
	if e.Details != "" {
		return e.Name + ": " + e.Message + ": " + e.Details
	}
	return e.Name + ": " + e.Message
}

// Status - 413 для PayloadTooLarge, 400 для остальных.
func (e *BodyError) Status() int {
	if e.Name == ErrNamePayloadTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// ParsedBody - результат ParseBody. Value == nil, если тела нет.
type ParsedBody struct {
	Raw   []byte
	Value any
}

// ParseBody читает и разбирает JSON тело.
//
// headers должны быть уже нормализованы (ключи в нижнем регистре).
// contentLength < 0 означает, что транспорт его не знает.
func ParseBody(method common.Method, body io.Reader, headers map[string]string, contentLength int64, cfg Config) (ParsedBody, *BodyError) {
	if !method.HasBody() || body == nil {
		return ParsedBody{}, nil
	}

	limit := cfg.maxBodySize()

	if declared, ok := declaredLength(headers, contentLength); ok && declared > limit {
		return ParsedBody{}, tooLarge(limit)
	}

	raw, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return ParsedBody{}, &BodyError{
			Name:    ErrNameBodyRead,
			Message: "Failed to read request body",
			Details: err.Error(),
		}
	}
	if int64(len(raw)) > limit {
		return ParsedBody{}, tooLarge(limit)
	}
	if len(raw) == 0 {
		return ParsedBody{}, nil
	}

	if cfg.ValidateContentType {
		ct := headers["content-type"]
		if !strings.Contains(strings.ToLower(ct), "application/json") {
			return ParsedBody{}, &BodyError{
				Name:    ErrNameInvalidContentType,
				Message: "Content-Type must be application/json",
			}
		}
	}

	value, err := decodeJSON(raw)
	if err != nil {
		return ParsedBody{}, &BodyError{
			Name:    ErrNameInvalidJSON,
			Message: "Invalid JSON body",
			Details: err.Error(),
		}
	}

	return ParsedBody{Raw: raw, Value: value}, nil
}

func declaredLength(headers map[string]string, contentLength int64) (int64, bool) {
	if contentLength >= 0 {
		return contentLength, true
	}
	v, ok := headers["content-length"]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func tooLarge(limit int64) *BodyError {
	return &BodyError{
		Name:    ErrNamePayloadTooLarge,
		Message: fmt.Sprintf("Request body exceeds %d bytes", limit),
	}
}

// decodeJSON разбирает ровно одно JSON значение, числа остаются json.Number.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level JSON value")
	}
	return v, nil
}
