package store

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// keyset is the position encoded in a listing cursor. Partners are listed
// in ascending id order, so the last id on a page is enough to resume.
type keyset struct {
	ID int64 `json:"id"`
}

// EncodeCursor returns the opaque cursor that resumes a listing after id.
// The cursor is base64-encoded JSON, e.g. base64(`{"id":77}`).
func EncodeCursor(id int64) string {
	data, _ := json.Marshal(keyset{ID: id})
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor extracts the id from a cursor produced by EncodeCursor. A bare
// decimal id is accepted too, for clients that echo numeric cursors. Any
// other value returns ErrBadCursor.
func DecodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	if id, err := strconv.ParseInt(cursor, 10, 64); err == nil && id >= 0 {
		return id, nil
	}

	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, eris.Wrapf(ErrBadCursor, "decode %q", cursor)
	}
	var k keyset
	if err := json.Unmarshal(data, &k); err != nil || k.ID < 0 {
		return 0, eris.Wrapf(ErrBadCursor, "decode %q", cursor)
	}
	return k.ID, nil
}
