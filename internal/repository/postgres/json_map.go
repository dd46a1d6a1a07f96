package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// stringMap adapts map[string]string to jsonb storage for columns like
// clients.external_ids.
type stringMap map[string]string

// Value implements driver.Valuer.
func (m stringMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(m))
}

// Scan implements sql.Scanner.
func (m *stringMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("stringMap: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	out := make(map[string]string)
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
