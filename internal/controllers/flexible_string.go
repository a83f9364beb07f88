package controllers

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// FlexibleString is an identifier (NIS, NIP, phone) that spreadsheets and
// clients often send as a JSON number. Numbers keep their literal digits.
type FlexibleString string

func (fs *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*fs = FlexibleString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Errorf("expected string or number, got %s", data)
	}
	*fs = FlexibleString(n.String())
	return nil
}

func (fs FlexibleString) String() string {
	return string(fs)
}
