package adapter

import (
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strings"
	"time"
	"unicode"
)

const (
	circularMarker = "[Circular]"
	maxDepthMarker = "[MaxDepth]"
	// maxMetaDepth ограничивает рекурсию при обходе полей ошибки.
	maxMetaDepth = 6
)

// SerializedError - описание произвольной ошибки или значения паники.
// Никогда не содержит stack trace.
type SerializedError struct {
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// SerializeError описывает значение, полученное из error или recover().
//
// Name - имя динамического типа (без указателя). Для неэкспортируемых и
// примитивных типов - "Error", для runtime.Error - "RuntimeError".
// Meta - экспортируемые поля, обойдённые с защитой от циклов.
// Паника внутри Error() или при обходе полей не выходит наружу.
func SerializeError(v any) SerializedError {
	out := SerializedError{Name: errorName(v), Message: errorMessage(v)}
	out.Meta = errorMeta(v)
	return out
}

func errorName(v any) string {
	if v == nil {
		return "Error"
	}
	if _, ok := v.(runtime.Error); ok {
		return "RuntimeError"
	}

	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" || t.PkgPath() == "" || !unicode.IsUpper([]rune(name)[0]) {
		return "Error"
	}
	return name
}

func errorMessage(v any) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = "error message unavailable"
		}
	}()

	switch e := v.(type) {
	case nil:
		return "unknown error"
	case error:
		return e.Error()
	case string:
		return e
	case fmt.Stringer:
		return e.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("non-error value of type %T", v)
}

func errorMeta(v any) (meta map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			meta = nil
		}
	}()

	rv := reflect.ValueOf(v)
	w := &metaWalker{visited: make(map[visitKey]bool)}

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Pointer {
			key := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
			w.visited[key] = true
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	fields := w.structFields(rv, 0)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

// metaWalker переводит значение в JSON-совместимое дерево.
// visited хранит ссылки текущего пути, повтор заменяется на "[Circular]".
type metaWalker struct {
	visited map[visitKey]bool
}

var (
	errorType = reflect.TypeFor[error]()
	timeT     = reflect.TypeFor[time.Time]()
)

func (w *metaWalker) walk(v reflect.Value, depth int) any {
	if !v.IsValid() {
		return nil
	}
	if depth > maxMetaDepth {
		return maxDepthMarker
	}

	// Вложенные ошибки сворачиваются в сообщение.
	if v.Type().Implements(errorType) && v.CanInterface() {
		if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
			return nil
		}
		return errorMessage(v.Interface())
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return w.enter(v, func() any { return w.walk(v.Elem(), depth+1) })

	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return w.walk(v.Elem(), depth)

	case reflect.Struct:
		if v.Type() == timeT {
			return v.Interface().(time.Time).Format(time.RFC3339Nano)
		}
		return w.structFields(v, depth)

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		return w.enter(v, func() any {
			out := make(map[string]any, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				out[mapKey(iter.Key())] = w.walk(iter.Value(), depth+1)
			}
			return out
		})

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
		return w.enter(v, func() any { return w.list(v, depth) })

	case reflect.Array:
		return w.list(v, depth)

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprint(f)
		}
		return f

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return "[" + v.Type().String() + "]"

	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v.Complex())

	default:
		if !v.CanInterface() {
			return nil
		}
		return v.Interface()
	}
}

// enter отмечает ссылку на время обхода поддерева.
func (w *metaWalker) enter(v reflect.Value, fn func() any) any {
	key := visitKey{ptr: v.Pointer(), typ: v.Type()}
	if w.visited[key] {
		return circularMarker
	}
	w.visited[key] = true
	defer delete(w.visited, key)
	return fn()
}

func (w *metaWalker) list(v reflect.Value, depth int) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = w.walk(v.Index(i), depth+1)
	}
	return out
}

func (w *metaWalker) structFields(v reflect.Value, depth int) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]; tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		out[name] = w.walk(v.Field(i), depth+1)
	}
	return out
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() {
		return fmt.Sprint(k.Interface())
	}
	return k.Type().String()
}
