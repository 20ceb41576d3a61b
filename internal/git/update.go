package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	appcfg "git.home.luguber.info/inful/recreate-skps/internal/config"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
)

// updateOnce fetches origin and hard resets the working tree onto the remote
// branch. Local changes in the checkout are discarded.
func (c *Client) updateOnce(ctx context.Context, repo appcfg.Repository) (string, error) {
	repoPath := c.repoPath(repo)
	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	slog.Info("Updating repository", logfields.Name(repo.Name), logfields.Path(repoPath))

	if err := c.fetchOrigin(ctx, repository, repo); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", classifyError("fetch", repo.URL, err)
	}

	branch := resolveTargetBranch(repository, repo)
	remoteRef, err := repository.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return "", &NotFoundError{Op: "update", URL: repo.URL, Err: fmt.Errorf("remote branch %s: %w", branch, err)}
	}

	wt, err := repository.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	local := plumbing.NewBranchReferenceName(branch)
	co := &git.CheckoutOptions{Branch: local, Force: true}
	if _, lerr := repository.Reference(local, true); lerr != nil {
		co.Create = true
		co.Hash = remoteRef.Hash()
	}
	if err := wt.Checkout(co); err != nil {
		return "", fmt.Errorf("checkout %s: %w", branch, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return "", fmt.Errorf("reset to origin/%s: %w", branch, err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		slog.Warn("Clean untracked failed", logfields.Name(repo.Name), logfields.Error(err))
	}
	logCheckout(repository, repo, "Repository updated")
	return repoPath, nil
}

func (c *Client) fetchOrigin(ctx context.Context, repository *git.Repository, repo appcfg.Repository) error {
	opts := &git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.NoTags,
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Progress:   c.progress,
		Force:      true,
	}
	if c.depth > 0 {
		opts.Depth = c.depth
	}
	auth, err := authMethod(repo.Auth)
	if err != nil {
		return err
	}
	opts.Auth = auth
	if err := repository.FetchContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

// resolveTargetBranch picks the configured branch, then the current HEAD
// branch, then origin's default branch, then "main".
func resolveTargetBranch(repository *git.Repository, repo appcfg.Repository) string {
	if repo.Branch != "" {
		return repo.Branch
	}
	if head, err := repository.Head(); err == nil && head.Name().IsBranch() {
		return head.Name().Short()
	}
	if ref, err := repository.Reference(plumbing.ReferenceName("refs/remotes/origin/HEAD"), false); err == nil && ref.Target() != "" {
		return plumbing.ReferenceName(ref.Target()).Short()
	}
	return "main"
}
