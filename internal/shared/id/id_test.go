package id

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
)

func TestPrefixedIDs(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"session", func() string { return NewSessionID().String() }, "sess_"},
		{"task", func() string { return NewTaskID().String() }, "task_"},
		{"request", func() string { return NewRequestID().String() }, "req_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generated := tt.gen()
			assert.True(t, strings.HasPrefix(generated, tt.prefix))

			raw := strings.TrimPrefix(generated, tt.prefix)
			_, err := ulid.Parse(raw)
			assert.NoError(t, err, "suffix should be a valid ULID")
		})
	}
}

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := gen.GenerateString()
		assert.False(t, seen[s], "duplicate ULID generated")
		seen[s] = true
	}
}

func TestContainerName(t *testing.T) {
	sid := NewSessionID()

	a := NewContainerName(sid)
	b := NewContainerName(sid)

	assert.True(t, strings.HasPrefix(a, "chrome_instance_"+sid.String()))
	assert.NotEqual(t, a, b, "same session must yield distinct container names")
}
