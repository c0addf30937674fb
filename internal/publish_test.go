package internal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGitPublisher_Publish(t *testing.T) {
	var calls []string
	p := &GitPublisher{
		Dir: "/srv/vps",
		run: func(_ context.Context, dir string, args ...string) error {
			calls = append(calls, dir+": git "+strings.Join(args, " "))
			return nil
		},
	}

	if err := p.Publish(context.Background(), "Update VPS records"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := []string{
		"/srv/vps: git add .",
		"/srv/vps: git commit -m Update VPS records",
		"/srv/vps: git push",
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("git calls mismatch (-want +got):\n%s", diff)
	}
}

func TestGitPublisher_StopsOnFailure(t *testing.T) {
	var calls int
	p := &GitPublisher{
		run: func(_ context.Context, _ string, args ...string) error {
			calls++
			if args[0] == "commit" {
				return errors.New("nothing to commit")
			}
			return nil
		},
	}

	if err := p.Publish(context.Background(), "msg"); err == nil {
		t.Fatal("expected an error")
	}
	if calls != 2 {
		t.Errorf("got %d git calls, want 2 (push must not run)", calls)
	}
}
