// Package rowmap переводит доменные объекты в строки таблиц и обратно.
//
// Каждая строка хранит полную копию объекта в JSON колонке payload и,
// рядом, отдельные колонки для индексов. При чтении payload главнее:
// колонки используются только когда payload отсутствует или повреждён.
// Так новые поля доменного типа не требуют миграции уже записанных строк.
//
// Описание полей берётся из тегов структуры:
//
//	ID   string `json:"id" db:"id,required"`
//	Name string `json:"name" db:",required"` // колонка name
//	Meta Extra  `json:"meta" db:"-"`         // только в payload
//
// Имя колонки по умолчанию - snake_case от json имени.
package rowmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	domainerrors "github.com/Haleralex/edgeapi/internal/domain/errors"
)

// PayloadColumn - колонка с полной JSON копией объекта.
const PayloadColumn = "payload"

// Row - строка таблицы: имя колонки -> значение.
type Row map[string]any

// Kind - грубый JSON тип поля, по нему проверяется payload.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	KindArray
	KindObject
)

// Field - описание одного поля сущности.
type Field struct {
	Name     string // json имя (camelCase)
	Column   string // имя колонки (snake_case), "" если поле живёт только в payload
	Required bool
	Kind     Kind
	index    int
}

// Mapper переводит T в Row и обратно. T должен быть структурой.
type Mapper[T any] struct {
	entity string
	fields []Field
}

// New строит Mapper по тегам json/db типа T.
func New[T any](entity string) (*Mapper[T], error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("rowmap: %s is not a struct", typ)
	}

	m := &Mapper[T]{entity: entity}
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		field := Field{Name: name, Column: ToSnake(name), Kind: kindOf(sf.Type), index: i}

		if tag, ok := sf.Tag.Lookup("db"); ok {
			column, opts, _ := strings.Cut(tag, ",")
			switch column {
			case "-":
				field.Column = ""
			case "":
			default:
				field.Column = column
			}
			field.Required = opts == "required"
		}

		if field.Column == PayloadColumn {
			return nil, fmt.Errorf("rowmap: field %s uses reserved column %q", sf.Name, PayloadColumn)
		}

		m.fields = append(m.fields, field)
	}

	return m, nil
}

// MustNew - как New, но паникует. Для объявления на уровне пакета.
func MustNew[T any](entity string) *Mapper[T] {
	m, err := New[T](entity)
	if err != nil {
		panic(err)
	}
	return m
}

// Entity возвращает имя сущности (используется в ошибках).
func (m *Mapper[T]) Entity() string { return m.entity }

// Fields возвращает копию описаний полей.
func (m *Mapper[T]) Fields() []Field { return append([]Field(nil), m.fields...) }

// Columns возвращает отдельные колонки в порядке полей и payload последним.
func (m *Mapper[T]) Columns() []string {
	cols := make([]string, 0, len(m.fields)+1)
	for _, f := range m.fields {
		if f.Column != "" {
			cols = append(cols, f.Column)
		}
	}
	return append(cols, PayloadColumn)
}

// Column возвращает колонку для json имени поля.
func (m *Mapper[T]) Column(name string) (string, bool) {
	for _, f := range m.fields {
		if f.Name == name && f.Column != "" {
			return f.Column, true
		}
	}
	return "", false
}

// ============================================
// Write path
// ============================================

// ToRow раскладывает объект по колонкам и кладёт полную копию в payload.
func (m *Mapper[T]) ToRow(v T) (Row, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", m.entity, err)
	}

	rv := reflect.ValueOf(v)
	row := make(Row, len(m.fields)+1)
	for _, f := range m.fields {
		if f.Column == "" {
			continue
		}
		row[f.Column] = columnValue(rv.Field(f.index))
	}
	row[PayloadColumn] = payload

	return row, nil
}

func columnValue(fv reflect.Value) any {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if fv.IsNil() {
			return nil
		}
		return fv.Elem().Interface()
	case reflect.Slice, reflect.Map:
		if fv.IsNil() {
			return nil
		}
	}
	return fv.Interface()
}

// ============================================
// Read path
// ============================================

// FromRow восстанавливает объект: сначала из payload, затем из колонок.
// Если ни один путь не даёт обязательных полей - *MissingFieldsError.
func (m *Mapper[T]) FromRow(row Row) (T, error) {
	if v, ok := m.fromPayload(row[PayloadColumn]); ok {
		return v, nil
	}
	return m.fromColumns(row)
}

func (m *Mapper[T]) fromPayload(raw any) (T, bool) {
	var zero T

	doc, ok := payloadObject(raw)
	if !ok {
		return zero, false
	}

	for _, f := range m.fields {
		if f.Required && !matchesKind(doc[f.Name], f.Kind) {
			return zero, false
		}
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(encoded, &v); err != nil {
		return zero, false
	}
	return v, true
}

func (m *Mapper[T]) fromColumns(row Row) (T, error) {
	var zero T

	doc := make(map[string]any, len(m.fields))
	var missing []string

	for _, f := range m.fields {
		value, found := lookup(row, f)
		if !found || value == nil {
			if f.Required {
				missing = append(missing, f.Name)
			}
			continue
		}
		doc[f.Name] = value
	}

	if len(missing) > 0 {
		return zero, domainerrors.NewMissingFieldsError(m.entity, missing...)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s columns: %w", m.entity, err)
	}
	var v T
	if err := json.Unmarshal(encoded, &v); err != nil {
		return zero, fmt.Errorf("failed to decode %s columns: %w", m.entity, err)
	}
	return v, nil
}

// lookup ищет значение поля сначала по snake_case колонке, затем по camelCase имени.
func lookup(row Row, f Field) (any, bool) {
	if f.Column != "" {
		if v, ok := row[f.Column]; ok {
			return v, true
		}
	}
	v, ok := row[f.Name]
	return v, ok
}

func payloadObject(raw any) (map[string]any, bool) {
	var data []byte
	switch p := raw.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return p, true
	case json.RawMessage:
		data = p
	case []byte:
		data = p
	case string:
		data = []byte(p)
	default:
		return nil, false
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

func matchesKind(v any, kind Kind) bool {
	if v == nil {
		return false
	}
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		_, ok := v.(float64)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindTime:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := time.Parse(time.RFC3339Nano, s)
		return err == nil
	case KindArray:
		_, ok := v.([]any)
		return ok
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}

var timeType = reflect.TypeFor[time.Time]()

func kindOf(t reflect.Type) Kind {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return KindTime
	}
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.Map, reflect.Struct:
		return KindObject
	default:
		return KindAny
	}
}
