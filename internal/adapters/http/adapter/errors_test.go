package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/Haleralex/edgeapi/internal/domain/errors"
)

type QuotaError struct {
	Limit   int
	Used    float64
	Owner   *QuotaOwner
	private string
}

type QuotaOwner struct {
	Name   string
	Quotas []*QuotaError
	Parent *QuotaOwner
}

func (e *QuotaError) Error() string { return fmt.Sprintf("quota %d exceeded", e.Limit) }

type PanickyError struct{}

func (PanickyError) Error() string { panic("no message for you") }

type NoisyError struct {
	Ch   chan int
	Fn   func()
	NaN  float64
	At   time.Time
	Tags map[string]any
}

func (NoisyError) Error() string { return "noisy" }

func TestSerializeError_NameAndMessage(t *testing.T) {
	tests := []struct {
		name        string
		value       any
		wantName    string
		wantMessage string
	}{
		{"PointerError", &QuotaError{Limit: 5}, "QuotaError", "quota 5 exceeded"},
		{"ValueError", domainerrors.ValidationError{Field: "name", Message: "name is required"}, "ValidationError", "name is required"},
		{"UnexportedType", errors.New("plain"), "Error", "plain"},
		{"WrappedUnexported", fmt.Errorf("outer: %w", errors.New("inner")), "Error", "outer: inner"},
		{"StringPanic", "boom", "Error", "boom"},
		{"IntPanic", 42, "Error", "42"},
		{"Nil", nil, "Error", "unknown error"},
		{"PanickingErrorMethod", PanickyError{}, "PanickyError", "error message unavailable"},
		{"NonErrorStruct", struct{ A int }{1}, "Error", "non-error value of type struct { A int }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SerializeError(tt.value)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantMessage, got.Message)
		})
	}
}

func TestSerializeError_RuntimeError(t *testing.T) {
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		var m map[string]int
		m["x"] = 1
	}()

	got := SerializeError(recovered)
	assert.Equal(t, "RuntimeError", got.Name)
	assert.Contains(t, got.Message, "nil map")
}

func TestSerializeError_MetaSkipsUnexportedFields(t *testing.T) {
	got := SerializeError(&QuotaError{Limit: 3, Used: 2.5, private: "secret"})

	require.NotNil(t, got.Meta)
	assert.Equal(t, 3, got.Meta["Limit"])
	assert.Equal(t, 2.5, got.Meta["Used"])
	assert.Nil(t, got.Meta["Owner"])
	assert.NotContains(t, got.Meta, "private")
}

func TestSerializeError_CyclesAreMarked(t *testing.T) {
	owner := &QuotaOwner{Name: "team"}
	owner.Parent = owner
	qe := &QuotaError{Limit: 1, Owner: owner}
	owner.Quotas = []*QuotaError{qe}

	got := SerializeError(qe)

	meta := got.Meta["Owner"].(map[string]any)
	assert.Equal(t, "team", meta["Name"])
	assert.Equal(t, circularMarker, meta["Parent"])
	// Ссылка обратно на саму ошибку тоже цикл, но вложенная ошибка
	// сворачивается в сообщение.
	assert.Equal(t, []any{"quota 1 exceeded"}, meta["Quotas"])

	_, err := json.Marshal(got)
	assert.NoError(t, err)
}

func TestSerializeError_SelfReferencingMap(t *testing.T) {
	tags := map[string]any{}
	tags["self"] = tags

	got := SerializeError(NoisyError{Tags: tags, NaN: math.NaN()})

	assert.Equal(t, map[string]any{"self": circularMarker}, got.Meta["Tags"])
	assert.Equal(t, "NaN", got.Meta["NaN"])

	_, err := json.Marshal(got)
	assert.NoError(t, err)
}

func TestSerializeError_NonSerializableValues(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := SerializeError(NoisyError{Ch: make(chan int), Fn: func() {}, At: at})

	assert.Equal(t, "[chan int]", got.Meta["Ch"])
	assert.Equal(t, "[func()]", got.Meta["Fn"])
	assert.Equal(t, "2024-01-02T03:04:05Z", got.Meta["At"])

	_, err := json.Marshal(got)
	assert.NoError(t, err)
}

// CodedError оборачивает причину машинным кодом.
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string { return e.Code + ": " + e.Err.Error() }

func TestSerializeError_NestedErrorCollapsesToMessage(t *testing.T) {
	got := SerializeError(&CodedError{Code: "PROJECT_ARCHIVED", Err: domainerrors.ErrEntityNotFound})

	assert.Equal(t, "CodedError", got.Name)
	assert.Equal(t, "PROJECT_ARCHIVED", got.Meta["Code"])
	assert.Equal(t, "entity not found", got.Meta["Err"])
}

func TestSerializeError_DepthIsBounded(t *testing.T) {
	type Node struct {
		Next *Node
	}
	type DeepError struct {
		Root *Node
	}

	root := &Node{}
	cur := root
	for i := 0; i < 50; i++ {
		cur.Next = &Node{}
		cur = cur.Next
	}

	got := SerializeError(DeepError{Root: root})

	depth := 0
	var v any = got.Meta["Root"]
	for {
		m, ok := v.(map[string]any)
		if !ok {
			break
		}
		v = m["Next"]
		depth++
	}
	assert.Equal(t, maxDepthMarker, v)
	assert.Less(t, depth, 50)
}
