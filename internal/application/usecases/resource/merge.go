package resource

import (
	"encoding/json"
	"fmt"
)

// MergeMode - как тело запроса накладывается на сохранённую запись.
type MergeMode int

const (
	// MergePatch - JSON merge patch: переданные ключи заменяют старые,
	// null удаляет ключ, вложенные объекты сливаются рекурсивно.
	MergePatch MergeMode = iota
	// MergeReplace - запись заменяется телом целиком.
	MergeReplace
)

// serverManaged - поля, которые клиент не может изменить.
var serverManaged = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
	"deletedAt": true,
}

// merge накладывает body на current и декодирует результат в T.
// Поля из serverManaged в body игнорируются.
func merge[T any](current T, body map[string]any, mode MergeMode) (T, error) {
	var zero T

	doc := map[string]any{}
	if mode == MergePatch {
		encoded, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("failed to encode current record: %w", err)
		}
		if err := json.Unmarshal(encoded, &doc); err != nil {
			return zero, fmt.Errorf("failed to decode current record: %w", err)
		}
	}

	for key, value := range body {
		if serverManaged[key] {
			continue
		}
		if mode == MergePatch {
			doc[key] = mergeValue(doc[key], value)
			if value == nil {
				delete(doc, key)
			}
			continue
		}
		doc[key] = value
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("failed to encode merged record: %w", err)
	}
	var out T
	if err := json.Unmarshal(encoded, &out); err != nil {
		return zero, err
	}
	return out, nil
}

func mergeValue(target, patch any) any {
	patchObj, ok := patch.(map[string]any)
	if !ok {
		return patch
	}
	targetObj, ok := target.(map[string]any)
	if !ok {
		targetObj = map[string]any{}
	}
	for k, v := range patchObj {
		if v == nil {
			delete(targetObj, k)
			continue
		}
		targetObj[k] = mergeValue(targetObj[k], v)
	}
	return targetObj
}
