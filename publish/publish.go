// Package publish turns a batch of staged file edits into a single commit on
// the content store's branch.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eringen/folio/content"
)

var (
	// ErrNoChanges is returned for a batch with no files and no deletions.
	ErrNoChanges = errors.New("no changes to publish")
	// ErrInvalidPath is returned for empty, absolute or escaping paths.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidEncoding is returned for a file encoding other than utf-8 or base64.
	ErrInvalidEncoding = errors.New("invalid encoding")
)

var publishes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "folio",
	Name:      "publishes_total",
	Help:      "Publish attempts by result.",
}, []string{"result"})

// File is a staged edit: a path and its new content.
type File struct {
	Path     string           `json:"path"`
	Content  string           `json:"content"`
	Encoding content.Encoding `json:"encoding,omitempty"`
}

// Batch is everything one publish commits.
type Batch struct {
	Files        []File   `json:"files"`
	DeletedFiles []string `json:"deletedFiles"`
	Message      string   `json:"message"`
}

// Empty reports whether b carries no edits.
func (b Batch) Empty() bool {
	return len(b.Files) == 0 && len(b.DeletedFiles) == 0
}

// Result describes the commit a successful publish created.
type Result struct {
	Success   bool   `json:"success"`
	CommitSHA string `json:"commitSha"`
	CommitURL string `json:"commitUrl"`
}

// Publisher drives the store's git object API.
type Publisher struct {
	git    content.Git
	branch string
	now    func() time.Time
}

// New returns a Publisher that commits to branch.
func New(git content.Git, branch string) *Publisher {
	if branch == "" {
		branch = "main"
	}
	return &Publisher{git: git, branch: branch, now: time.Now}
}

// WithClock replaces the clock used for the default commit message.
func (p *Publisher) WithClock(now func() time.Time) *Publisher {
	p.now = now
	return p
}

// DefaultMessage is the commit message used when the batch has none.
func DefaultMessage(t time.Time) string {
	return "Update from admin panel — " + t.UTC().Format(time.RFC3339)
}

// Publish creates one commit containing every file and deletion in b and
// advances the branch to it. Steps run in order and the first failure aborts
// the rest; the branch ref is only touched by the final step.
func (p *Publisher) Publish(ctx context.Context, b Batch) (Result, error) {
	res, err := p.publish(ctx, b)
	switch {
	case err == nil:
		publishes.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrNoChanges), errors.Is(err, ErrInvalidPath), errors.Is(err, ErrInvalidEncoding):
		publishes.WithLabelValues("rejected").Inc()
	default:
		publishes.WithLabelValues("failed").Inc()
	}
	return res, err
}

func (p *Publisher) publish(ctx context.Context, b Batch) (Result, error) {
	if b.Empty() {
		return Result{}, ErrNoChanges
	}
	for _, f := range b.Files {
		if err := validPath(f.Path); err != nil {
			return Result{}, err
		}
		if f.Encoding != "" && f.Encoding != content.EncodingUTF8 && f.Encoding != content.EncodingBase64 {
			return Result{}, fmt.Errorf("%w %q for %s", ErrInvalidEncoding, f.Encoding, f.Path)
		}
	}
	for _, d := range b.DeletedFiles {
		if err := validPath(d); err != nil {
			return Result{}, err
		}
	}

	head, err := p.git.GetRef(ctx, p.branch)
	if err != nil {
		return Result{}, fmt.Errorf("resolve branch %s: %w", p.branch, err)
	}
	baseTree, err := p.git.GetCommitTree(ctx, head)
	if err != nil {
		return Result{}, fmt.Errorf("resolve base tree: %w", err)
	}

	entries := make([]content.TreeEntry, 0, len(b.Files)+len(b.DeletedFiles))
	for _, f := range b.Files {
		enc := f.Encoding
		if enc == "" {
			enc = content.EncodingUTF8
		}
		sha, err := p.git.CreateBlob(ctx, f.Content, enc)
		if err != nil {
			return Result{}, fmt.Errorf("create blob %s: %w", f.Path, err)
		}
		entries = append(entries, content.TreeEntry{Path: f.Path, Mode: content.FileMode, SHA: sha})
	}
	for _, d := range b.DeletedFiles {
		entries = append(entries, content.TreeEntry{Path: d, Mode: content.FileMode})
	}

	tree, err := p.git.CreateTree(ctx, baseTree, entries)
	if err != nil {
		return Result{}, fmt.Errorf("create tree: %w", err)
	}
	msg := strings.TrimSpace(b.Message)
	if msg == "" {
		msg = DefaultMessage(p.now())
	}
	commit, err := p.git.CreateCommit(ctx, msg, tree, []string{head})
	if err != nil {
		return Result{}, fmt.Errorf("create commit: %w", err)
	}
	if err := p.git.UpdateRef(ctx, p.branch, commit); err != nil {
		return Result{}, fmt.Errorf("update ref %s: %w", p.branch, err)
	}
	return Result{Success: true, CommitSHA: commit, CommitURL: p.git.CommitURL(commit)}, nil
}

func validPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %s", ErrInvalidPath, p)
		}
	}
	if path.Clean(p) != p {
		return fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return nil
}
