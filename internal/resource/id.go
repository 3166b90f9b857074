package resource

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a record. Servers may hand out numeric or string
// identifiers; both are kept in their textual form and digit-only values
// are written back to JSON as numbers.
type ID string

func IDFromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return id == ""
}

// Int64 reports the numeric value of id when it is a canonical base-10
// integer ("7", not "007").
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != string(id) {
		return 0, false
	}
	return n, true
}

func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int64(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Scan lets pgx read bigint and text key columns straight into an ID.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = ""
	case int64:
		*id = IDFromInt(v)
	case int32:
		*id = IDFromInt(int64(v))
	case string:
		*id = ID(v)
	case []byte:
		*id = ID(v)
	default:
		return fmt.Errorf("cannot scan %T into resource.ID", src)
	}
	return nil
}

func (id ID) Value() (driver.Value, error) {
	if id == "" {
		return nil, nil
	}
	if n, ok := id.Int64(); ok {
		return n, nil
	}
	return string(id), nil
}
