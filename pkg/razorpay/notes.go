package razorpay

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	NoteUserID = "userId"
	NoteType   = "type"
)

// Notes is the key/value map attached to orders and payments. Razorpay renders
// an empty map as [] and allows non-string values.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] == '[' {
		*n = nil
		return nil
	}
	var values map[string]any
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return fmt.Errorf("decode notes: %w", err)
	}
	out := make(Notes, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	*n = out
	return nil
}
