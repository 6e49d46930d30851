package filters

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAttributeParam is returned for an attributes parameter that is
// not a JSON object.
var ErrInvalidAttributeParam = errors.New("attributes must be a JSON object of attribute code to value")

// ParseAttributeParam decodes an attributes parameter such as
// {"color":["red","blue"],"size":10}. String values are used as they are;
// arrays, numbers and booleans are re-encoded as JSON text. Null values are
// dropped.
func ParseAttributeParam(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrInvalidAttributeParam
	}

	out := make(map[string]string, len(obj))
	for code, v := range obj {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			out[code] = t
		default:
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			if err := enc.Encode(t); err != nil {
				return nil, fmt.Errorf("attribute %q: %w", code, err)
			}
			out[code] = strings.TrimSpace(buf.String())
		}
	}
	return out, nil
}
