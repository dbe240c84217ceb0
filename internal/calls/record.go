package calls

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is a single "patient called" event as written by the producer.
type Record struct {
	Name      string    `json:"name"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"` // identity of the call
}

// SameCall reports whether a and b are the same call. Two absent calls are
// the same; an absent call never matches a real one.
func SameCall(a, b *Record) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Timestamp.Equal(b.Timestamp)
}

// DecodeSnapshot parses the serialized record list held by the store.
// Empty input and a JSON null both decode to an empty snapshot.
func DecodeSnapshot(data []byte) ([]Record, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var snapshot []Record
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding call snapshot: %w", err)
	}
	return snapshot, nil
}

// EncodeSnapshot serializes a record list, newest first.
func EncodeSnapshot(snapshot []Record) ([]byte, error) {
	if snapshot == nil {
		snapshot = []Record{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding call snapshot: %w", err)
	}
	return data, nil
}
