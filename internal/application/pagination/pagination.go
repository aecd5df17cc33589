// Package pagination реализует курсорную пагинацию списков.
//
// Курсор - это целочисленное смещение, а не непрозрачный токен.
// Лимит ограничен диапазоном [1, MaxLimit], по умолчанию DefaultLimit.
package pagination

import "strconv"

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ClampLimit разбирает limit из строки запроса.
// Нечисловое значение или <= 0 дают DefaultLimit, больше MaxLimit обрезается.
func ClampLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultLimit
	}
	return min(n, MaxLimit)
}

// ParseCursor разбирает cursor из строки запроса. Ошибка или < 0 дают 0.
func ParseCursor(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Page - окно выборки [Cursor, RangeEnd()].
type Page struct {
	Cursor int
	Limit  int
}

// FromQuery собирает Page из сырых параметров limit и cursor.
func FromQuery(limit, cursor string) Page {
	return Page{Cursor: ParseCursor(cursor), Limit: ClampLimit(limit)}
}

// Offset совпадает с Cursor, нужен для читаемости SQL кода.
func (p Page) Offset() int { return p.Cursor }

// RangeEnd - индекс последней строки окна включительно.
func (p Page) RangeEnd() int { return p.Cursor + p.Limit - 1 }

// HasMore сообщает, есть ли строки после текущей страницы.
//
// Если хранилище отдало точное число строк (total != nil), решает оно.
// Иначе страница считается не последней только когда она заполнена целиком.
func (p Page) HasMore(returned int, total *int) bool {
	if total != nil {
		return p.Cursor+returned < *total
	}
	return returned == p.Limit
}

// NextCursor - смещение, с которого начнётся следующая страница.
func (p Page) NextCursor(returned int) int {
	return p.Cursor + returned
}

// Slice применяет окно к уже загруженной коллекции.
// Используется хранилищами, которые не умеют OFFSET/LIMIT.
func Slice[T any](items []T, p Page) []T {
	if p.Cursor >= len(items) {
		return []T{}
	}
	end := min(p.Cursor+p.Limit, len(items))
	return items[p.Cursor:end]
}
