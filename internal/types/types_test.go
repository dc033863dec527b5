package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRow_RecordID(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want string
	}{
		{"record_id", Row{"record_id": " A1 "}, "A1"},
		{"relational id", Row{"id": 42}, "42"},
		{"document id", Row{"_id": "65f0c1"}, "65f0c1"},
		{"record_id wins", Row{"record_id": "R", "id": 7}, "R"},
		{"blank falls back", Row{"record_id": "  ", "id": int64(9)}, "9"},
		{"bytes", Row{"id": []byte("B2")}, "B2"},
		{"missing", Row{"name": "x"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.row.RecordID())
		})
	}
}

func TestRow_HasAndFirst(t *testing.T) {
	row := Row{"issue_date": "", "billing_date": "2024-01-05", "notes": nil}

	assert.False(t, row.Has("issue_date"))
	assert.False(t, row.Has("notes"))
	assert.False(t, row.Has("missing"))
	assert.True(t, row.Has("billing_date"))
	assert.Equal(t, "2024-01-05", row.First("issue_date", "billing_date"))
	assert.Nil(t, row.First("notes", "missing"))

	var empty Row
	assert.Nil(t, empty.Get("anything"))
}
