package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// transcript accumulates a session's agent output and archives it
// compressed when the session ends. Transcripts are the only record of
// what an agent did once its container is gone.
type transcript struct {
	sessionID string
	dir       string

	mu    sync.Mutex
	lines []string
}

func newTranscript(sessionID, dir string) *transcript {
	if dir == "" {
		return nil
	}
	return &transcript{
		sessionID: sessionID,
		dir:       dir,
	}
}

// Append records one output line with its stream and arrival time.
func (t *transcript) Append(stream, text string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lines = append(t.lines, fmt.Sprintf("%s %s %s", time.Now().Format(time.RFC3339), stream, text))
}

// Archive writes the transcript as <dir>/<sessionID>.log.gz.
func (t *transcript) Archive() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	lines := t.lines
	t.mu.Unlock()

	if len(lines) == 0 {
		return nil
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create transcript dir: %w", err)
	}

	path := filepath.Join(t.dir, t.sessionID+".log.gz")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	for _, line := range lines {
		if _, err := gw.Write([]byte(line + "\n")); err != nil {
			gw.Close()
			return fmt.Errorf("failed to write transcript: %w", err)
		}
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to finalize transcript: %w", err)
	}

	return nil
}
