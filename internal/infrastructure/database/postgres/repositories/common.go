// Package repositories provides the PostgreSQL-backed implementations of the
// domain repository interfaces.  Every method takes a context for
// cancellation and uses parameterised queries exclusively; JSONB columns
// round-trip through encoding/json.
package repositories

import "encoding/json"

// mustJSON marshals v for a JSONB column, falling back to an empty array so
// a marshalling hiccup can never write NULL into a NOT NULL column.
func mustJSON(v any) []byte {
	if v == nil {
		return []byte("[]")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("[]")
	}
	return b
}

// fromJSON unmarshals a JSONB column into out, tolerating NULL and empty
// payloads.
func fromJSON(data []byte, out any) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, out)
}
