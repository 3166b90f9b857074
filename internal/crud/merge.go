package crud

import (
	"encoding/json"
	"fmt"

	"cafepanel/internal/resource"
)

// Merge returns a fresh copy of record with the top-level fields named in
// patch overwritten. record itself is left untouched, nested slices and
// maps included.
func Merge[T any](record T, patch resource.Patch) (T, error) {
	var merged T
	base, err := json.Marshal(record)
	if err != nil {
		return merged, fmt.Errorf("encode record: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return merged, fmt.Errorf("record is not an object: %w", err)
	}
	for key, value := range patch {
		raw, err := json.Marshal(value)
		if err != nil {
			return merged, fmt.Errorf("encode field %q: %w", key, err)
		}
		fields[key] = raw
	}
	combined, err := json.Marshal(fields)
	if err != nil {
		return merged, err
	}
	if err := json.Unmarshal(combined, &merged); err != nil {
		return merged, fmt.Errorf("apply patch: %w", err)
	}
	return merged, nil
}
