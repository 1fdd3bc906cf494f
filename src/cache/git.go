package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/spf13/afero"

	"bench-harvester/src/logger"
)

// gitCacheDir is the directory inside the repository holding report files.
const gitCacheDir = "cache"

// GitOptions locates the repository backing a GitCache.
type GitOptions struct {
	// URL of the remote. Empty means a local-only repository.
	URL string
	// Path of the working copy on disk.
	Path string
	// Token authenticates clone, pull and push over HTTPS.
	Token string
}

// GitCache is a DirCache over the cache/ directory of a git working copy.
// New reports are committed and pushed by Sync.
type GitCache struct {
	*DirCache

	repo   *git.Repository
	path   string
	token  string
	logger logger.Logger
}

// OpenGitCache opens the working copy at opts.Path, pulling the latest
// reports, or clones opts.URL there when it does not exist yet.
func OpenGitCache(ctx context.Context, opts GitOptions, log logger.Logger) (*GitCache, error) {
	c := &GitCache{path: opts.Path, token: opts.Token, logger: log}

	repo, err := git.PlainOpen(opts.Path)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists) && opts.URL != "":
		log.Info("Cloning %s into %s", opts.URL, opts.Path)
		repo, err = git.PlainCloneContext(ctx, opts.Path, false, &git.CloneOptions{
			URL:  opts.URL,
			Auth: c.auth(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to clone %s: %w", opts.URL, err)
		}
	case errors.Is(err, git.ErrRepositoryNotExists):
		repo, err = git.PlainInit(opts.Path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to init %s: %w", opts.Path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to open %s: %w", opts.Path, err)
	default:
		c.repo = repo
		if err := c.pull(ctx); err != nil {
			return nil, err
		}
	}
	c.repo = repo

	fs := afero.NewBasePathFs(afero.NewOsFs(), opts.Path)
	if err := fs.MkdirAll(gitCacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	c.DirCache = NewDirCache(fs, gitCacheDir, log)
	return c, nil
}

func (c *GitCache) auth() transport.AuthMethod {
	if c.token == "" {
		return nil
	}
	// Any non-empty username works with a token
	return &githttp.BasicAuth{Username: "bench-harvester", Password: c.token}
}

func (c *GitCache) hasRemote() bool {
	_, err := c.repo.Remote(git.DefaultRemoteName)
	return err == nil
}

func (c *GitCache) pull(ctx context.Context) error {
	if !c.hasRemote() {
		return nil
	}

	wt, err := c.repo.Worktree()
	if err != nil {
		return err
	}

	c.logger.Debug("Pulling latest reports into %s", c.path)
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: git.DefaultRemoteName, Auth: c.auth()})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull %s: %w", c.path, err)
	}
	return nil
}

// Sync commits report files added since the last sync and pushes them to
// the remote when there is one. It is a no-op when nothing changed.
func (c *GitCache) Sync(ctx context.Context) error {
	c.DirCache.mu.Lock()
	defer c.DirCache.mu.Unlock()

	wt, err := c.repo.Worktree()
	if err != nil {
		return err
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to read worktree status: %w", err)
	}

	var changed []string
	for path, st := range status {
		if !strings.HasPrefix(path, gitCacheDir+"/") || !strings.HasSuffix(path, ".json") {
			continue
		}
		if st.Worktree != git.Unmodified || st.Staging != git.Unmodified {
			changed = append(changed, path)
		}
	}
	if len(changed) == 0 {
		c.logger.Debug("No new reports to commit in %s", c.path)
		return nil
	}
	sort.Strings(changed)

	for _, path := range changed {
		if _, err := wt.Add(path); err != nil {
			return fmt.Errorf("failed to stage %s: %w", path, err)
		}
	}

	msg := fmt.Sprintf("Add %d benchmark report(s)", len(changed))
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "bench-harvester",
			Email: "bench-harvester@users.noreply.github.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit reports: %w", err)
	}
	c.logger.Info("Committed %d report(s) to %s as %s", len(changed), c.path, hash.String()[:8])

	if !c.hasRemote() {
		return nil
	}

	err = c.repo.PushContext(ctx, &git.PushOptions{RemoteName: git.DefaultRemoteName, Auth: c.auth()})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push reports: %w", err)
	}
	return nil
}

// Close is a no-op; the working copy stays on disk for the next run.
func (c *GitCache) Close() error { return nil }
