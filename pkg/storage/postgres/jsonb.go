package postgres

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/alertflow/operator/pkg/shared/errors"
)

// jsonMap adapts map[string]interface{} to database/sql's Valuer/Scanner
// so it can be bound directly to JSONB columns through sqlx.
type jsonMap map[string]interface{}

func (m jsonMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(m))
}

func (m *jsonMap) Scan(src interface{}) error {
	if src == nil {
		*m = jsonMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.ValidationError("jsonb column", "unsupported source type")
	}
	out := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return errors.FailedTo("decode jsonb column", err)
		}
	}
	*m = out
	return nil
}

func toJSONMap(m map[string]interface{}) jsonMap {
	if m == nil {
		return jsonMap{}
	}
	return jsonMap(m)
}

// stringMap adapts map[string]string (labels/annotations) to JSONB the
// same way jsonMap does for map[string]interface{}.
type stringMap map[string]string

func (m stringMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(m))
}

func (m *stringMap) Scan(src interface{}) error {
	if src == nil {
		*m = stringMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.ValidationError("jsonb column", "unsupported source type")
	}
	out := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return errors.FailedTo("decode jsonb column", err)
		}
	}
	*m = out
	return nil
}

func toStringMap(m map[string]string) stringMap {
	if m == nil {
		return stringMap{}
	}
	return stringMap(m)
}
