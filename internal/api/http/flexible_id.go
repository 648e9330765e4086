package http

import (
	"bytes"
	"encoding/json"
)

// flexibleID accepts an id sent either as a JSON number or as a string, as
// web clients tend to carry ids as strings.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	// range and sign are checked by structure.ParseChapterID
	*f = flexibleID(n.String())
	return nil
}
