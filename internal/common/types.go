package common

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringList is a list of short strings (tags). It is stored as a native
// text[] column on postgres and as the same array literal in a text column
// elsewhere.
type StringList []string

// GormDBDataType picks the column type per dialect.
func (StringList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return pq.StringArray(l).Value()
}

// Scan implements sql.Scanner. It accepts both the postgres array literal
// and a JSON array.
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringList: unsupported scan type %T", src)
	}
	if len(raw) > 0 && raw[0] == '[' {
		var out []string
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
		*l = out
		return nil
	}
	var arr pq.StringArray
	if err := arr.Scan(raw); err != nil {
		return err
	}
	*l = StringList(arr)
	return nil
}

// NewStringList lowercases and trims values, dropping blanks and duplicates.
func NewStringList(values []string) StringList {
	seen := make(map[string]struct{}, len(values))
	out := make(StringList, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
