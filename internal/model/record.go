package model

import (
	"encoding/json"
	"time"
)

// Record is an entity-typed document row with a stable id and ISO-8601
// createdAt/updatedAt timestamps. The local store treats it as opaque.
type Record map[string]any

// NowISO returns the current UTC time in the wire timestamp format.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// NewRecord builds a record with id and fresh timestamps.
func NewRecord(id string) Record {
	now := NowISO()
	return Record{"id": id, "createdAt": now, "updatedAt": now}
}

func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// UpdatedAt parses the updatedAt field; zero time when absent or malformed.
func (r Record) UpdatedAt() time.Time {
	s, _ := r["updatedAt"].(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Touch stamps updatedAt with the current time.
func (r Record) Touch() {
	r["updatedAt"] = NowISO()
}

// Clone returns a shallow copy; field values are JSON scalars/containers
// that callers must not mutate in place.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ToRecord converts a typed entity into a record via its JSON form.
func ToRecord(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// Decode unmarshals the record into a typed entity.
func (r Record) Decode(v any) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
