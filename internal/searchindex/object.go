package searchindex

import (
	"encoding/json"
	"fmt"
)

// ObjectFrom converts any JSON-taggable value into an index payload. The
// value's tags decide the index field names, keeping naming in one place.
func ObjectFrom(v any) (Object, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode index object: %w", err)
	}
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to build index object: %w", err)
	}
	return obj, nil
}
