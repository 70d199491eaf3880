package media

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedManifest is returned when a manifest is not valid JSON or has no
// "files" array.
var ErrMalformedManifest = errors.New("malformed manifest")

// ParseManifest extracts the file names listed in a manifest document. Entries
// may be bare strings or objects carrying a "name" field; any other entry shape
// is skipped.
func ParseManifest(data []byte) ([]string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}
	raw, ok := doc["files"]
	if !ok {
		return nil, fmt.Errorf("%w: missing files", ErrMalformedManifest)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return nil, fmt.Errorf("%w: files is not an array", ErrMalformedManifest)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name := entryName(e); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func entryName(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}
