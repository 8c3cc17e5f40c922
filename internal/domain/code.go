package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Code is an IBGE identifier kept in the JSON form its source used: a
// numeric code is written as a number and a quoted code stays a string, so
// "0012" keeps its leading zeros.
type Code struct {
	text   string
	quoted bool
}

// NumberCode returns a code written as a JSON number.
func NumberCode(n int64) Code { return Code{text: strconv.FormatInt(n, 10)} }

// StringCode returns a code written as a JSON string.
func StringCode(s string) Code { return Code{text: s, quoted: true} }

func numberText(text string) Code { return Code{text: text} }

// String returns the code without quotes, as used in CSV rows and keys.
func (c Code) String() string { return c.text }

// Equal reports whether both codes have the same text and JSON form.
func (c Code) Equal(other Code) bool { return c == other }

func (c Code) MarshalJSON() ([]byte, error) {
	if c.quoted {
		var buf bytes.Buffer
		if err := encodeTo(&buf, c.text); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if c.text == "" {
		return []byte("null"), nil
	}
	return []byte(c.text), nil
}

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StringCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = numberText(n.String())
	return nil
}
