package metadata

import (
	"strconv"
	"time"
)

// Row is a field descriptor: one row of the field table. Relational kinds
// carry TargetID (peer model) and LinkID (reciprocal field or, for slug
// fields, the linked sibling).
type Row struct {
	ID        int64
	Name      string
	Slug      string
	Type      string
	ModelID   int64
	TargetID  int64
	LinkID    int64
	Dependent bool
	Editable  bool
	Locked    bool
	Immutable bool
}

// RowFromContent builds a Row from a field-table row map.
func RowFromContent(c Content) *Row {
	return &Row{
		ID:        ToInt64(c["id"]),
		Name:      ToString(c["name"]),
		Slug:      ToString(c["slug"]),
		Type:      ToString(c["type"]),
		ModelID:   ToInt64(c["model_id"]),
		TargetID:  ToInt64(c["target_id"]),
		LinkID:    ToInt64(c["link_id"]),
		Dependent: ToBool(c["dependent"]),
		Editable:  ToBool(c["editable"]),
		Locked:    ToBool(c["locked"]),
		Immutable: ToBool(c["immutable"]),
	}
}

// ToInt64 coerces database and JSON scalar shapes to int64; unparseable
// values yield 0.
func ToInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// ToBool coerces database booleans, SQLite 0/1 integers, and "true"/"false"
// strings to bool.
func ToBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case int:
		return b != 0
	case float64:
		return b != 0
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false
		}
		return parsed
	default:
		return false
	}
}

// ToString stringifies scalar values; nil yields "".
func ToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
