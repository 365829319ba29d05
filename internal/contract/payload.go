package contract

import (
	"encoding/json"
	"strings"
)

// NotInformed is shown for display fields missing from a stored payload.
const NotInformed = "Não informado"

// Fields is a read-only view over a stored payload where every key is optional.
// Malformed payloads behave as empty ones.
type Fields struct {
	m map[string]json.RawMessage
}

// ParseFields wraps a stored payload.
func ParseFields(payload json.RawMessage) Fields {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return Fields{}
	}
	return Fields{m: m}
}

// String returns the trimmed value at key. Numbers are returned in their JSON
// form; other kinds, blanks and missing keys report ok=false.
func (f Fields) String(key string) (string, bool) {
	raw, ok := f.m[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// StringOr is String with a fallback.
func (f Fields) StringOr(key, fallback string) string {
	if s, ok := f.String(key); ok {
		return s
	}
	return fallback
}
