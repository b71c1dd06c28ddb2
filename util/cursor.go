package util

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor is the opaque pagination token of the list endpoint, encoding
// the created_at/id of the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

func EncodeCursor(c Cursor) string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeCursor parses a client-supplied cursor. Any decoding failure
// yields (nil, false): a malformed cursor means "start from the top",
// never an error.
func DecodeCursor(s string) (*Cursor, bool) {
	if s == "" {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return nil, false
	}
	return &c, true
}
