package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	appcfg "git.home.luguber.info/inful/recreate-skps/internal/config"
	"git.home.luguber.info/inful/recreate-skps/internal/retry"
)

// upstream is a bare remote seeded from a working repository.
type upstream struct {
	bare     string
	seed     *git.Repository
	seedPath string
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	tmp := t.TempDir()
	u := &upstream{bare: filepath.Join(tmp, "remote.git"), seedPath: filepath.Join(tmp, "seed")}
	if _, err := git.PlainInit(u.bare, true); err != nil {
		t.Fatalf("init bare: %v", err)
	}
	seed, err := git.PlainInit(u.seedPath, false)
	if err != nil {
		t.Fatalf("init seed: %v", err)
	}
	if _, err := seed.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{u.bare}}); err != nil {
		t.Fatalf("create remote: %v", err)
	}
	u.seed = seed
	u.commit(t, "BUILD.gn", "group(\"all\") {}", "initial")
	return u
}

func (u *upstream) commit(t *testing.T, name, content, msg string) plumbing.Hash {
	t.Helper()
	wt, err := u.seed.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(u.seedPath, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatal(err)
	}
	h, err := wt.Commit(msg, &git.CommitOptions{Author: &object.Signature{Name: "bot", Email: "bot@example.com", When: time.Now()}})
	if err != nil {
		t.Fatal(err)
	}
	if err := u.seed.Push(&git.PushOptions{RemoteName: "origin"}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		t.Fatalf("push: %v", err)
	}
	return h
}

func fastPolicy() retry.Policy {
	return retry.NewPolicy(appcfg.RetryBackoffFixed, time.Millisecond, time.Millisecond, 0)
}

func TestCheckoutClones(t *testing.T) {
	up := newUpstream(t)
	root := t.TempDir()
	c := NewClient(root, WithRetryPolicy(fastPolicy()))

	path, err := c.Checkout(t.Context(), appcfg.Repository{Name: "src", URL: up.bare, Branch: "master"})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if path != filepath.Join(root, "src") {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(filepath.Join(path, "BUILD.gn")); err != nil {
		t.Errorf("checked out file missing: %v", err)
	}
}

func TestCheckoutRecloneDiscardsLocalState(t *testing.T) {
	up := newUpstream(t)
	root := t.TempDir()
	c := NewClient(root, WithRetryPolicy(fastPolicy()))
	repo := appcfg.Repository{Name: "skia", URL: up.bare, Branch: "master"}

	path, err := c.Checkout(t.Context(), repo)
	if err != nil {
		t.Fatal(err)
	}
	stray := filepath.Join(path, "stray.txt")
	if err := os.WriteFile(stray, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Checkout(t.Context(), repo); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Errorf("stray file survived reclone: %v", err)
	}
}

func TestCheckoutIncrementalUpdates(t *testing.T) {
	up := newUpstream(t)
	root := t.TempDir()
	c := NewClient(root, WithIncremental(true), WithRetryPolicy(fastPolicy()))
	repo := appcfg.Repository{Name: "src", URL: up.bare, Branch: "master"}

	path, err := c.Checkout(t.Context(), repo)
	if err != nil {
		t.Fatal(err)
	}

	// A local commit that diverges from upstream is discarded by the update.
	local, err := git.PlainOpen(path)
	if err != nil {
		t.Fatal(err)
	}
	wt, _ := local.Worktree()
	if err := os.WriteFile(filepath.Join(path, "local.txt"), []byte("L"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("local.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Commit("local", &git.CommitOptions{Author: &object.Signature{Name: "me", Email: "me@example.com", When: time.Now()}}); err != nil {
		t.Fatal(err)
	}

	want := up.commit(t, "DEPS", "deps = {}", "add DEPS")
	if _, err := c.Checkout(t.Context(), repo); err != nil {
		t.Fatalf("incremental Checkout: %v", err)
	}
	head, err := Head(path)
	if err != nil {
		t.Fatal(err)
	}
	if head != want.String() {
		t.Errorf("HEAD = %s, want %s", head, want)
	}
	if _, err := os.Stat(filepath.Join(path, "local.txt")); !os.IsNotExist(err) {
		t.Errorf("local commit survived update: %v", err)
	}
}

func TestCheckoutStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	c := NewClient(t.TempDir(), WithRetryPolicy(fastPolicy()))
	_, err := c.Checkout(ctx, appcfg.Repository{Name: "src", URL: "/does/not/matter"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCheckoutMissingRemoteFails(t *testing.T) {
	c := NewClient(t.TempDir(), WithRetryPolicy(fastPolicy()))
	_, err := c.Checkout(t.Context(), appcfg.Repository{Name: "src", URL: filepath.Join(t.TempDir(), "nope.git")})
	if err == nil {
		t.Fatal("expected error for missing remote")
	}
}

func TestHeadNotARepository(t *testing.T) {
	_, err := Head(t.TempDir())
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"auth sentinel", transport.ErrAuthenticationRequired, true},
		{"not found sentinel", transport.ErrRepositoryNotFound, true},
		{"auth text", errors.New("authentication failed"), true},
		{"protocol", errors.New("unsupported protocol scheme"), true},
		{"rate limit", errors.New("429 Too Many Requests"), false},
		{"timeout", errors.New("dial tcp: i/o timeout"), false},
		{"unknown", errors.New("connection reset by peer"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("clone", "https://example.com/r.git", tt.err)
			if got := IsPermanentGitError(err); got != tt.permanent {
				t.Errorf("IsPermanentGitError(%v) = %v, want %v", err, got, tt.permanent)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("classified error must wrap the cause")
			}
		})
	}
	if IsPermanentGitError(nil) {
		t.Error("nil is not permanent")
	}
}

func TestAuthMethod(t *testing.T) {
	if a, err := authMethod(nil); a != nil || err != nil {
		t.Errorf("nil auth = %v, %v", a, err)
	}
	a, err := authMethod(&appcfg.AuthConfig{Type: appcfg.AuthTypeToken, Token: "t0k"})
	if err != nil {
		t.Fatal(err)
	}
	basic, ok := a.(*http.BasicAuth)
	if !ok || basic.Username != "token" || basic.Password != "t0k" {
		t.Errorf("token auth = %#v", a)
	}
	if _, err := authMethod(&appcfg.AuthConfig{Type: appcfg.AuthTypeBasic, Username: "u"}); err == nil {
		t.Error("basic auth without password should fail")
	}
	if _, err := authMethod(&appcfg.AuthConfig{Type: appcfg.AuthTypeSSH, KeyPath: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("ssh auth with missing key should fail")
	}
}

func TestDryRunDoesNotTouchDisk(t *testing.T) {
	root := t.TempDir()
	path, err := DryRun{Root: root}.Checkout(t.Context(), appcfg.Repository{Name: "skia", URL: "https://example.invalid/skia.git"})
	if err != nil {
		t.Fatalf("dry run checkout: %v", err)
	}
	if path != filepath.Join(root, "skia") {
		t.Fatalf("path = %q", path)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run created %s", path)
	}
}
