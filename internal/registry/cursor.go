package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Cursor is an opaque backend-issued pagination token. The zero value
// means "no cursor" (start of the result sequence).
type Cursor string

// IsZero reports whether c is the null cursor.
func (c Cursor) IsZero() bool {
	return c == ""
}

// UnmarshalJSON accepts a JSON string, a JSON number or null. Backends
// differ on whether keyset cursors are sent as numbers or encoded strings.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode cursor: %w", err)
		}
		*c = Cursor(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode cursor: %w", err)
	}
	*c = Cursor(n.String())
	return nil
}

// MarshalJSON encodes the null cursor as null and anything else as a string.
func (c Cursor) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}
