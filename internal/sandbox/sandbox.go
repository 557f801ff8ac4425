// Package sandbox runs one external program under a wall-clock timeout and
// classifies how it ended. It offers no isolation beyond the timeout.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

var ErrStart = errors.New("failed to start process")

// waitDelay bounds how long Wait keeps draining pipes after the child is
// gone, e.g. when a grandchild inherited stdout and outlives it.
const waitDelay = 2 * time.Second

const timeoutMessage = "Your program has timed out! Check for a possible infinite loop or contact your instructor"

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeTimeout Outcome = "timeout"
	OutcomeExit    Outcome = "exit"
	OutcomeCrash   Outcome = "crash"
)

type Command struct {
	Path string
	Args []string
	// Dir is the working directory of the child. Relative Path values are
	// resolved against it.
	Dir string
	// Stdin, when non-nil, is written to the child's input which is then closed.
	Stdin *string
	// Timeout of zero means no limit.
	Timeout time.Duration
	// Env entries are appended to the current environment.
	Env []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

type Result struct {
	Succeeded bool
	Outcome   Outcome
	Stdout    string
	Stderr    string
	ExitCode  int
	Signal    string
	// Diagnostic is the user-facing explanation of a failed run.
	Diagnostic string
	Wall       time.Duration
}

// Run executes the command and waits for it. A timeout, non-zero exit or
// crash is reported through the Result; an error is returned only when the
// process could not be started or ctx was canceled by the caller.
func Run(ctx context.Context, c Command) (*Result, error) {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = strings.NewReader(*c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrStart, c.Path, err)
	}
	waitErr := cmd.Wait()

	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Wall:   time.Since(start),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.Outcome = OutcomeTimeout
		res.ExitCode = -1
		res.Diagnostic = timeoutMessage
		return res, nil
	}

	if waitErr == nil {
		res.Succeeded = true
		res.Outcome = OutcomeOK
		return res, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		if errors.Is(waitErr, exec.ErrWaitDelay) {
			// the child exited but something kept its pipes open
			res.Succeeded = cmd.ProcessState != nil && cmd.ProcessState.Success()
			if res.Succeeded {
				res.Outcome = OutcomeOK
				return res, nil
			}
		} else {
			return nil, fmt.Errorf("failed to wait for %q: %w", c.Path, waitErr)
		}
	}

	state := cmd.ProcessState
	if sig, ok := signalOf(state); ok {
		res.Outcome = OutcomeCrash
		res.ExitCode = -1
		res.Signal = sig
		res.Diagnostic = crashMessage(sig, res.Stderr)
		return res, nil
	}

	res.Outcome = OutcomeExit
	res.ExitCode = state.ExitCode()
	res.Diagnostic = Quote(res.Stderr)
	return res, nil
}

// Quote prefixes every line of s with "> " so it reads as quoted text in a
// feedback file.
func Quote(s string) string {
	return "> " + strings.ReplaceAll(s, "\n", "\n> ")
}

func crashMessage(sig, stderr string) string {
	msg := fmt.Sprintf("Your program was terminated by signal %s", sig)
	if sig == "SIGSEGV" {
		msg += ", likely a segmentation fault"
	}
	if strings.TrimSpace(stderr) != "" {
		msg += "\n" + Quote(stderr)
	}
	return msg
}

// Split breaks a shell-like command string into the program and its args.
func Split(command string) (string, []string, error) {
	parts, err := shlex.Split(command)
	if err != nil {
		return "", nil, fmt.Errorf("failed to split command %q: %w", command, err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	return parts[0], parts[1:], nil
}
