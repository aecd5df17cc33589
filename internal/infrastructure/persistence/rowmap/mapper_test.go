package rowmap

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/Haleralex/edgeapi/internal/domain/errors"
)

type widget struct {
	ID          string     `json:"id" db:"id,required"`
	DisplayName string     `json:"displayName" db:",required"`
	Count       int        `json:"count"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt" db:",required"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	Notes       string     `json:"notes,omitempty" db:"-"`
}

var created = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func newWidget() widget {
	return widget{
		ID:          "w-1",
		DisplayName: "Gadget",
		Count:       3,
		Tags:        []string{"a", "b"},
		CreatedAt:   created,
		Notes:       "payload only",
	}
}

func TestNew(t *testing.T) {
	m, err := New[widget]("Widget")
	require.NoError(t, err)

	assert.Equal(t, "Widget", m.Entity())
	assert.Equal(t,
		[]string{"id", "display_name", "count", "tags", "created_at", "deleted_at", "payload"},
		m.Columns())

	col, ok := m.Column("displayName")
	assert.True(t, ok)
	assert.Equal(t, "display_name", col)

	_, ok = m.Column("notes")
	assert.False(t, ok)

	t.Run("RejectsNonStruct", func(t *testing.T) {
		_, err := New[string]("Bad")
		assert.Error(t, err)
	})

	t.Run("RejectsReservedColumn", func(t *testing.T) {
		type bad struct {
			Payload string `json:"payload"`
		}
		_, err := New[bad]("Bad")
		assert.Error(t, err)
	})
}

func TestToRow(t *testing.T) {
	m := MustNew[widget]("Widget")

	row, err := m.ToRow(newWidget())
	require.NoError(t, err)

	assert.Equal(t, "w-1", row["id"])
	assert.Equal(t, "Gadget", row["display_name"])
	assert.Equal(t, 3, row["count"])
	assert.Equal(t, []string{"a", "b"}, row["tags"])
	assert.Equal(t, created, row["created_at"])
	assert.Nil(t, row["deleted_at"])
	assert.NotContains(t, row, "notes")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(row[PayloadColumn].([]byte), &payload))
	assert.Equal(t, "payload only", payload["notes"])
}

func TestFromRow_RoundTrip(t *testing.T) {
	m := MustNew[widget]("Widget")

	deleted := created.Add(time.Hour)
	inputs := []widget{
		newWidget(),
		{ID: "w-2", DisplayName: "Bare", CreatedAt: created},
		{ID: "w-3", DisplayName: "Gone", CreatedAt: created, DeletedAt: &deleted, Tags: []string{}},
	}

	for _, in := range inputs {
		t.Run(in.ID, func(t *testing.T) {
			row, err := m.ToRow(in)
			require.NoError(t, err)

			out, err := m.FromRow(row)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestFromRow_PayloadIsAuthoritative(t *testing.T) {
	m := MustNew[widget]("Widget")

	row, err := m.ToRow(newWidget())
	require.NoError(t, err)
	row["display_name"] = "stale column value"

	out, err := m.FromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "Gadget", out.DisplayName)
	assert.Equal(t, "payload only", out.Notes)
}

func TestFromRow_PayloadAsDecodedObject(t *testing.T) {
	m := MustNew[widget]("Widget")

	out, err := m.FromRow(Row{PayloadColumn: map[string]any{
		"id":          "w-9",
		"displayName": "From jsonb",
		"createdAt":   "2024-03-01T12:30:00Z",
	}})
	require.NoError(t, err)
	assert.Equal(t, widget{ID: "w-9", DisplayName: "From jsonb", CreatedAt: created}, out)
}

func TestFromRow_ColumnFallback(t *testing.T) {
	m := MustNew[widget]("Widget")

	want := widget{ID: "w-1", DisplayName: "Gadget", Count: 3, Tags: []string{"a", "b"}, CreatedAt: created}

	tests := []struct {
		name string
		row  Row
	}{
		{
			name: "SnakeCaseWithoutPayload",
			row: Row{
				"id": "w-1", "display_name": "Gadget", "count": int64(3),
				"tags": []any{"a", "b"}, "created_at": created, "deleted_at": nil,
			},
		},
		{
			name: "CamelCaseWithoutPayload",
			row: Row{
				"id": "w-1", "displayName": "Gadget", "count": 3,
				"tags": []string{"a", "b"}, "createdAt": created,
			},
		},
		{
			name: "MalformedPayload",
			row: Row{
				"id": "w-1", "display_name": "Gadget", "count": 3,
				"tags": []string{"a", "b"}, "created_at": created,
				PayloadColumn: []byte(`{not json`),
			},
		},
		{
			name: "PayloadFailsTypeGuard",
			row: Row{
				"id": "w-1", "display_name": "Gadget", "count": 3,
				"tags": []string{"a", "b"}, "created_at": created,
				PayloadColumn: `{"id":"w-1","displayName":42,"createdAt":"2024-03-01T12:30:00Z"}`,
			},
		},
		{
			name: "PayloadMissingRequiredField",
			row: Row{
				"id": "w-1", "display_name": "Gadget", "count": 3,
				"tags": []string{"a", "b"}, "created_at": created,
				PayloadColumn: json.RawMessage(`{"id":"w-1"}`),
			},
		},
		{
			name: "EmptyPayload",
			row: Row{
				"id": "w-1", "display_name": "Gadget", "count": 3,
				"tags": []string{"a", "b"}, "created_at": created,
				PayloadColumn: []byte("  "),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := m.FromRow(tt.row)
			require.NoError(t, err)
			assert.Equal(t, want, out)
		})
	}
}

func TestFromRow_MissingFields(t *testing.T) {
	m := MustNew[widget]("Widget")

	_, err := m.FromRow(Row{"id": "w-1", "count": 3, "created_at": nil})
	require.Error(t, err)

	var missing *domainerrors.MissingFieldsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Widget", missing.Entity)
	assert.Equal(t, []string{"createdAt", "displayName"}, missing.Fields)
}

func TestToSnake(t *testing.T) {
	tests := map[string]string{
		"id":          "id",
		"displayName": "display_name",
		"avatarUrl":   "avatar_url",
		"ownerID":     "owner_id",
		"avatarURL":   "avatar_url",
		"HTTPStatus":  "http_status",
		"createdAt":   "created_at",
		"line2Text":   "line2_text",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ToSnake(in))
		})
	}
}
