// internal/models/json.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RawJSON is an opaque JSON document persisted in a JSONB column.
type RawJSON json.RawMessage

// EmptyObject is stored when a document was not supplied.
var EmptyObject = RawJSON(`{}`)

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(data []byte) error {
	if r == nil {
		return fmt.Errorf("models.RawJSON: UnmarshalJSON on nil pointer")
	}
	*r = append((*r)[0:0], data...)
	return nil
}

func (r *RawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	case nil:
		*r = nil
	default:
		return fmt.Errorf("models.RawJSON: cannot scan %T", src)
	}
	return nil
}

// Value encodes as text; lib/pq would send []byte as bytea.
func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 || string(r) == "null" {
		return string(EmptyObject), nil
	}
	return string(r), nil
}

// Decode unmarshals the document into dst.
func (r RawJSON) Decode(dst interface{}) error {
	if len(r) == 0 {
		return nil
	}
	return json.Unmarshal(r, dst)
}

// OrDefault returns r, or def when r is empty or JSON null.
func (r RawJSON) OrDefault(def RawJSON) RawJSON {
	if len(r) == 0 || string(r) == "null" {
		return def
	}
	return r
}
