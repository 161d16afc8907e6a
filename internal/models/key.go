package models

import (
	"bytes"
	"encoding/json"
)

// Key is a GoTo identifier (webinarKey, registrantKey, sessionKey). The API sends them as JSON
// numbers too large for float64 in some responses and as strings in others.
type Key string

// UnmarshalJSON accepts a quoted string, a bare number or null.
func (k *Key) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*k = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = Key(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*k = Key(n.String())
	return nil
}

func (k Key) String() string { return string(k) }
