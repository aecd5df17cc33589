package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", DefaultLimit},
		{"abc", DefaultLimit},
		{"0", DefaultLimit},
		{"-5", DefaultLimit},
		{"10.5", DefaultLimit},
		{"12abc", DefaultLimit},
		{"1", 1},
		{"50", 50},
		{"100", 100},
		{"101", MaxLimit},
		{"200", MaxLimit},
	}

	for _, tt := range tests {
		t.Run("raw="+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampLimit(tt.raw))
		})
	}
}

func TestParseCursor(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"x", 0},
		{"-1", 0},
		{"0", 0},
		{"42", 42},
	}

	for _, tt := range tests {
		t.Run("raw="+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCursor(tt.raw))
		})
	}
}

func TestPage_RangeEnd(t *testing.T) {
	assert.Equal(t, 24, Page{Cursor: 0, Limit: 25}.RangeEnd())
	assert.Equal(t, 109, Page{Cursor: 10, Limit: 100}.RangeEnd())
}

func TestPage_HasMore(t *testing.T) {
	total := func(n int) *int { return &n }

	tests := []struct {
		name     string
		page     Page
		returned int
		total    *int
		want     bool
	}{
		{"ExactCountMoreLeft", Page{Cursor: 0, Limit: 10}, 10, total(25), true},
		{"ExactCountLastPage", Page{Cursor: 20, Limit: 10}, 5, total(25), false},
		{"ExactCountFullPageButDone", Page{Cursor: 15, Limit: 10}, 10, total(25), false},
		{"ExactCountPastEnd", Page{Cursor: 40, Limit: 10}, 0, total(25), false},
		{"HeuristicFullPage", Page{Cursor: 0, Limit: 10}, 10, nil, true},
		{"HeuristicShortPage", Page{Cursor: 0, Limit: 10}, 3, nil, false},
		{"HeuristicEmpty", Page{Cursor: 0, Limit: 10}, 0, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.page.HasMore(tt.returned, tt.total))
		})
	}
}

func TestFromQuery_ClampedWindowAgainstExactCount(t *testing.T) {
	rows := make([]int, 15)
	for i := range rows {
		rows[i] = i
	}
	total := len(rows)

	page := FromQuery("200", "10")
	got := Slice(rows, page)

	assert.Equal(t, 100, page.Limit)
	assert.Equal(t, 10, page.Cursor)
	assert.Equal(t, []int{10, 11, 12, 13, 14}, got)
	assert.False(t, page.HasMore(len(got), &total))
	assert.Equal(t, 15, page.NextCursor(len(got)))
}

func TestSlice(t *testing.T) {
	items := []string{"a", "b", "c"}

	assert.Equal(t, []string{"a", "b"}, Slice(items, Page{Cursor: 0, Limit: 2}))
	assert.Equal(t, []string{"c"}, Slice(items, Page{Cursor: 2, Limit: 2}))
	assert.Empty(t, Slice(items, Page{Cursor: 3, Limit: 2}))
	assert.Empty(t, Slice(items, Page{Cursor: 10, Limit: 2}))
}
