// Package ghstore implements content.Store on top of GitHub's Contents and
// Git Data APIs.
package ghstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"

	"github.com/eringen/folio/content"
)

// Config selects the repository and branch the admin edits.
type Config struct {
	Owner  string
	Repo   string
	Branch string // default "main"
	Token  string

	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	BaseURL    string
	HTTPClient *http.Client
}

// Store talks to a single repository branch.
type Store struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

var _ content.Store = (*Store)(nil)

// New builds a Store. Owner and Repo are required.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Owner) == "" || strings.TrimSpace(cfg.Repo) == "" {
		return nil, errors.New("ghstore: owner and repo are required")
	}
	branch := strings.TrimSpace(cfg.Branch)
	if branch == "" {
		branch = "main"
	}
	client := github.NewClient(cfg.HTTPClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("ghstore: base url: %w", err)
		}
		client.BaseURL = u
	}
	return &Store{client: client, owner: cfg.Owner, repo: cfg.Repo, branch: branch}, nil
}

// Branch returns the branch this store reads from and publishes to.
func (s *Store) Branch() string { return s.branch }

// GetFile returns the decoded text of path at the head of the branch.
func (s *Store) GetFile(ctx context.Context, path string) (string, error) {
	op := "GET /contents/" + path
	file, _, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path,
		&github.RepositoryContentGetOptions{Ref: s.branch})
	if err != nil {
		return "", wrap(op, err)
	}
	if file == nil {
		return "", &content.UpstreamError{Op: op, Message: "path is a directory", Err: content.ErrNotFound}
	}
	text, err := file.GetContent()
	if err != nil {
		return "", &content.UpstreamError{Op: op, Message: "undecodable content", Err: err}
	}
	return text, nil
}

func (s *Store) GetRef(ctx context.Context, branch string) (string, error) {
	ref, _, err := s.client.Git.GetRef(ctx, s.owner, s.repo, "refs/heads/"+branch)
	if err != nil {
		return "", wrap("GET /git/refs/heads/"+branch, err)
	}
	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", &content.UpstreamError{Op: "GET /git/refs/heads/" + branch, Message: "ref has no object"}
	}
	return sha, nil
}

func (s *Store) GetCommitTree(ctx context.Context, commitSHA string) (string, error) {
	commit, _, err := s.client.Git.GetCommit(ctx, s.owner, s.repo, commitSHA)
	if err != nil {
		return "", wrap("GET /git/commits/"+commitSHA, err)
	}
	sha := commit.GetTree().GetSHA()
	if sha == "" {
		return "", &content.UpstreamError{Op: "GET /git/commits/" + commitSHA, Message: "commit has no tree"}
	}
	return sha, nil
}

func (s *Store) CreateBlob(ctx context.Context, text string, enc content.Encoding) (string, error) {
	if enc == "" {
		enc = content.EncodingUTF8
	}
	blob, _, err := s.client.Git.CreateBlob(ctx, s.owner, s.repo, &github.Blob{
		Content:  github.String(text),
		Encoding: github.String(string(enc)),
	})
	if err != nil {
		return "", wrap("POST /git/blobs", err)
	}
	return blob.GetSHA(), nil
}

// CreateTree sends deletions as entries with a null sha; go-github serializes
// entries without SHA and Content that way.
func (s *Store) CreateTree(ctx context.Context, baseTree string, entries []content.TreeEntry) (string, error) {
	items := make([]*github.TreeEntry, 0, len(entries))
	for _, e := range entries {
		mode := e.Mode
		if mode == "" {
			mode = content.FileMode
		}
		item := &github.TreeEntry{
			Path: github.String(e.Path),
			Mode: github.String(mode),
			Type: github.String("blob"),
		}
		if !e.Deleted() {
			item.SHA = github.String(e.SHA)
		}
		items = append(items, item)
	}
	tree, _, err := s.client.Git.CreateTree(ctx, s.owner, s.repo, baseTree, items)
	if err != nil {
		return "", wrap("POST /git/trees", err)
	}
	return tree.GetSHA(), nil
}

func (s *Store) CreateCommit(ctx context.Context, message, treeSHA string, parents []string) (string, error) {
	commit := &github.Commit{
		Message: github.String(message),
		Tree:    &github.Tree{SHA: github.String(treeSHA)},
	}
	for _, p := range parents {
		commit.Parents = append(commit.Parents, &github.Commit{SHA: github.String(p)})
	}
	created, _, err := s.client.Git.CreateCommit(ctx, s.owner, s.repo, commit, nil)
	if err != nil {
		return "", wrap("POST /git/commits", err)
	}
	return created.GetSHA(), nil
}

// UpdateRef never forces: GitHub rejects a non-fast-forward update.
func (s *Store) UpdateRef(ctx context.Context, branch, commitSHA string) error {
	_, _, err := s.client.Git.UpdateRef(ctx, s.owner, s.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(commitSHA)},
	}, false)
	if err != nil {
		return wrap("PATCH /git/refs/heads/"+branch, err)
	}
	return nil
}

func (s *Store) CommitURL(commitSHA string) string {
	return fmt.Sprintf("https://github.com/%s/%s/commit/%s", s.owner, s.repo, commitSHA)
}

func wrap(op string, err error) error {
	var ge *github.ErrorResponse
	if errors.As(err, &ge) && ge.Response != nil {
		inner := err
		if ge.Response.StatusCode == http.StatusNotFound {
			inner = fmt.Errorf("%w: %v", content.ErrNotFound, err)
		}
		return &content.UpstreamError{
			Op:         op,
			StatusCode: ge.Response.StatusCode,
			Message:    ge.Message,
			Err:        inner,
		}
	}
	return &content.UpstreamError{Op: op, Err: err}
}
