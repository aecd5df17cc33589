package adapter

import (
	"io"
	"maps"
	"slices"
	"strings"
)

// Inbound - запрос в том виде, в каком его отдаёт транспорт.
type Inbound struct {
	Method     string
	Path       string
	Headers    map[string][]string
	Query      map[string][]string
	PathParams map[string]string
	// Body - nil, если тела нет.
	Body io.Reader
	// ContentLength - -1, если неизвестен.
	ContentLength int64
	// Raw - исходное событие транспорта, доступно handler через Request.Raw().
	Raw any
}

// NormalizeHeaders приводит ключи к нижнему регистру и склеивает
// несколько значений через ", ".
func NormalizeHeaders(headers map[string][]string) map[string]string {
	out := make(map[string]string, len(headers))
	// Сортировка нужна, когда один заголовок пришёл в разных регистрах.
	for _, key := range slices.Sorted(maps.Keys(headers)) {
		values := headers[key]
		if len(values) == 0 {
			continue
		}
		lower := strings.ToLower(key)
		joined := strings.Join(values, ", ")
		if prev, ok := out[lower]; ok {
			joined = prev + ", " + joined
		}
		out[lower] = joined
	}
	return out
}

// NormalizeQuery превращает многозначные параметры в плоскую map.
// Без multiValue берётся первое значение, с ним все значения через ",".
func NormalizeQuery(query map[string][]string, multiValue bool) map[string]string {
	out := make(map[string]string, len(query))
	for key, values := range query {
		switch {
		case len(values) == 0:
			out[key] = ""
		case multiValue:
			out[key] = strings.Join(values, ",")
		default:
			out[key] = values[0]
		}
	}
	return out
}
