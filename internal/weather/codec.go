package weather

import (
	"github.com/goccy/go-json"
)

// EncodeSnapshot serializes a snapshot for the preference store.
func EncodeSnapshot(s Snapshot) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeSnapshot parses a persisted snapshot. Unknown fields are ignored and
// missing ones keep their zero value. Any failure, including empty input,
// yields nil.
func DecodeSnapshot(data string) *Snapshot {
	if data == "" {
		return nil
	}
	var s *Snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil
	}
	return s
}
