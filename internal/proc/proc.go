// Package proc runs external tools (ffmpeg, espeak, say) tied to a context.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Command builds a command that is killed, with its children, when ctx ends
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	configure(cmd)
	cmd.WaitDelay = 5 * time.Second
	return cmd
}

// Run executes the command and folds the tail of stderr into the error
func Run(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	logrus.WithField("argv", strings.Join(cmd.Args, " ")).Debug("Running command")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", cmd.Args[0], err, Tail(stderr.String(), 400))
	}
	return nil
}

// Tail keeps the last n bytes of s, trimmed
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Available reports whether an executable is on PATH
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Find returns the first candidate executable found on PATH
func Find(candidates ...string) (string, error) {
	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("none of %s found in PATH", strings.Join(candidates, ", "))
}
