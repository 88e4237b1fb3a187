package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	r := NewRecord("abc")
	assert.Equal(t, "abc", r.ID())
	assert.False(t, r.UpdatedAt().IsZero())
	assert.Equal(t, r["createdAt"], r["updatedAt"])
}

func TestUpdatedAt_Malformed(t *testing.T) {
	assert.True(t, Record{}.UpdatedAt().IsZero())
	assert.True(t, Record{"updatedAt": "not a time"}.UpdatedAt().IsZero())
	assert.True(t, Record{"updatedAt": 42}.UpdatedAt().IsZero())
}

func TestTouch(t *testing.T) {
	r := Record{"id": "x", "updatedAt": "2020-01-01T00:00:00Z"}
	before := r.UpdatedAt()
	r.Touch()
	assert.True(t, r.UpdatedAt().After(before))
	assert.WithinDuration(t, time.Now(), r.UpdatedAt(), time.Minute)
}

func TestToRecordAndDecode(t *testing.T) {
	c := Course{ID: "c1", Title: "Algebra", Category: "math"}

	r, err := ToRecord(c)
	require.NoError(t, err)
	assert.Equal(t, "c1", r.ID())
	assert.Equal(t, "Algebra", r["title"])

	var back Course
	require.NoError(t, r.Decode(&back))
	assert.Equal(t, c, back)
}

func TestClone(t *testing.T) {
	r := Record{"id": "x", "title": "a"}
	c := r.Clone()
	c["title"] = "b"
	assert.Equal(t, "a", r["title"])
}
