package query

import (
	"encoding/base64"
	"encoding/json"

	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/storage"
)

// Cursor is an opaque page marker: the sort key of the last item returned.
type Cursor string

func EncodeCursor(p storage.Position) Cursor {
	raw, _ := json.Marshal(p)
	return Cursor(base64.RawURLEncoding.EncodeToString(raw))
}

// Decode returns the position c encodes. A malformed cursor is a validation error.
func (c Cursor) Decode() (*storage.Position, error) {
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return nil, apperr.Validation("malformed cursor")
	}
	var p storage.Position
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" || p.CreatedAt.IsZero() {
		return nil, apperr.Validation("malformed cursor")
	}
	return &p, nil
}
