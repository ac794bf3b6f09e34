// Package id provides centralized ID generation for the orchestrator.
//
// Session, task, and request identifiers are prefixed ULIDs:
// lexicographically sortable, unique across instances, and readable in
// logs (sess_*, task_*, req_*). Container names additionally carry a
// UUID suffix so they stay unique on the Docker daemon even across
// orchestrator restarts.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a browsing session
type SessionID string

// TaskID identifies an agent task within a session
type TaskID string

// RequestID identifies an API request
type RequestID string

const (
	SessionPrefix = "sess"
	TaskPrefix    = "task"
	RequestPrefix = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewTaskID generates a new task ID
func NewTaskID() TaskID {
	return TaskID(Default().GenerateWithPrefix(TaskPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewContainerName builds a Docker container name for a session.
// The UUID suffix keeps names unique on the daemon even if a session ID
// is re-submitted after a crash left its container behind.
func NewContainerName(sid SessionID) string {
	return fmt.Sprintf("chrome_instance_%s_%s", sid, uuid.NewString()[:8])
}

func (id SessionID) String() string { return string(id) }
func (id TaskID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }
