package internal

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Publisher pushes the updated document wherever the page is served from.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

// GitPublisher commits everything in Dir and pushes it.
type GitPublisher struct {
	Dir string

	// run is swapped in tests
	run func(ctx context.Context, dir string, args ...string) error
}

func (p *GitPublisher) Publish(ctx context.Context, message string) error {
	run := p.run
	if run == nil {
		run = runGit
	}

	steps := [][]string{
		{"add", "."},
		{"commit", "-m", message},
		{"push"},
	}
	for _, args := range steps {
		if err := run(ctx, p.Dir, args...); err != nil {
			return err
		}
	}
	return nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: git %s: %v: %s", ErrIO, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
