// Package content defines the contract of the store that holds the site's files:
// a git repository reachable through blob/tree/commit/ref primitives.
//
// Two implementations live in sub-packages: ghstore (GitHub's Contents and Git
// Data APIs) and sqlstore (a local object store used for offline work and tests).
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Encoding tells the store how a blob's content is transported.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingBase64 Encoding = "base64"
)

// FileMode is the only mode the admin writes: a regular, non-executable file.
const FileMode = "100644"

// ErrNotFound is returned when a path, ref or object does not exist.
var ErrNotFound = errors.New("content: not found")

// TreeEntry is one item of a tree creation request. An empty SHA removes Path
// from the base tree.
type TreeEntry struct {
	Path string
	Mode string
	SHA  string
}

// Deleted reports whether the entry removes its path.
func (e TreeEntry) Deleted() bool { return e.SHA == "" }

// Reader reads file contents at the head of the configured branch.
type Reader interface {
	GetFile(ctx context.Context, path string) (string, error)
}

// Git is the low-level object API the publish pipeline drives.
type Git interface {
	GetRef(ctx context.Context, branch string) (commitSHA string, err error)
	GetCommitTree(ctx context.Context, commitSHA string) (treeSHA string, err error)
	CreateBlob(ctx context.Context, content string, enc Encoding) (sha string, err error)
	CreateTree(ctx context.Context, baseTree string, entries []TreeEntry) (sha string, err error)
	CreateCommit(ctx context.Context, message, treeSHA string, parents []string) (sha string, err error)
	UpdateRef(ctx context.Context, branch, commitSHA string) error
	CommitURL(commitSHA string) string
}

// Store is the full contract: reads for the editors, objects for publishing.
type Store interface {
	Reader
	Git
}

// UpstreamError reports a non-success answer from the remote store.
type UpstreamError struct {
	Op         string // e.g. "GET /git/refs/heads/main"
	StatusCode int    // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "upstream error"
	}
	var b strings.Builder
	b.WriteString("upstream ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": %d", e.StatusCode)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(" ")
		b.WriteString(msg)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
