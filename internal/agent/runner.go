// Package agent runs the browsing-agent subprocess for a session and
// streams its output line by line.
//
// The agent receives its task, model, and CDP URL as one JSON argv
// argument. Output is consumed as it is produced; a session timeout is
// enforced through the context, with SIGTERM first and SIGKILL after a
// grace period.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/browsergrid/backend/internal/infrastructure/logging"
	"github.com/browsergrid/backend/internal/shared/id"
)

// Line is one line of agent output.
type Line struct {
	Stream string // "stdout" or "stderr"
	Text   string
}

// Result describes how an agent run ended.
type Result struct {
	ExitCode int
	TimedOut bool
	Err      error
}

// Config holds runner configuration.
type Config struct {
	Command   string
	Args      []string
	WorkDir   string
	UsePTY    bool
	KillGrace time.Duration
}

// Runner launches browsing-agent subprocesses.
type Runner struct {
	cfg    Config
	logger *logging.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg Config, logger *logging.Logger) *Runner {
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = 2 * time.Second
	}
	return &Runner{
		cfg:    cfg,
		logger: logger.Named("agent"),
	}
}

// Run is a live agent subprocess. Lines closes when output is drained;
// Wait blocks until the process has exited.
type Run struct {
	// ID tags this run in logs and ties it back to its session
	ID    id.TaskID
	Lines <-chan Line

	done chan Result
}

// Wait blocks until the agent process exits and returns its result.
func (r *Run) Wait() Result {
	return <-r.done
}

// Start launches the agent with the encoded payload. The process is
// terminated when ctx ends: SIGTERM, then SIGKILL after the grace
// period.
func (r *Runner) Start(ctx context.Context, payload Payload) (*Run, error) {
	arg, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	runID := id.NewTaskID()

	args := append(append([]string{}, r.cfg.Args...), arg)
	cmd := exec.Command(r.cfg.Command, args...)
	cmd.Dir = r.cfg.WorkDir
	cmd.Env = os.Environ()

	lines := make(chan Line, 64)
	done := make(chan Result, 1)

	var readers sync.WaitGroup

	if r.cfg.UsePTY {
		// A PTY convinces agents that probe isatty to line-buffer
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to start agent under pty: %w", err)
		}
		readers.Add(1)
		go func() {
			defer readers.Done()
			scanLines(ptmx, "stdout", lines)
			ptmx.Close()
		}()
	} else {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open agent stdout: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open agent stderr: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start agent: %w", err)
		}

		readers.Add(2)
		go func() {
			defer readers.Done()
			scanLines(stdout, "stdout", lines)
		}()
		go func() {
			defer readers.Done()
			scanLines(stderr, "stderr", lines)
		}()
	}

	r.logger.Info("Agent started",
		zap.String("task_id", runID.String()),
		zap.String("command", r.cfg.Command),
		zap.Int("pid", cmd.Process.Pid),
	)

	// Watchdog: terminate when the context ends
	watchdogDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.terminate(cmd)
		case <-watchdogDone:
		}
	}()

	go func() {
		readers.Wait()
		close(lines)

		err := cmd.Wait()
		close(watchdogDone)

		result := Result{ExitCode: cmd.ProcessState.ExitCode()}
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
		} else if err != nil {
			result.Err = err
		}
		done <- result
	}()

	return &Run{ID: runID, Lines: lines, done: done}, nil
}

// terminate asks the process to exit, then kills it.
func (r *Runner) terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		cmd.Process.Kill()
		return
	}

	// Kill on an already-exited process is a no-op
	time.AfterFunc(r.cfg.KillGrace, func() {
		cmd.Process.Kill()
	})
}

// scanLines forwards non-empty lines from rd to out.
func scanLines(rd io.Reader, stream string, out chan<- Line) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		out <- Line{Stream: stream, Text: text}
	}
}
