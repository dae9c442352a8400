// Package sqlstore keeps a site's files as git-style blobs, trees, commits and
// refs in SQLite. It implements content.Store so the admin can run against a
// local copy of the site instead of GitHub.
package sqlstore

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/folio/content"
)

// ErrNotFastForward is returned when a ref update would drop commits.
var ErrNotFastForward = errors.New("sqlstore: update is not a fast-forward")

// Store wraps a SQLite database holding one repository.
type Store struct {
	db     *sql.DB
	branch string
	now    func() time.Time
}

var _ content.Store = (*Store)(nil)

// NewStore opens (or creates) the database at path, ensures the data directory
// exists, and runs schema migrations. Reads go to branch.
func NewStore(path, branch string) (*Store, error) {
	if branch == "" {
		branch = "main"
	}
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	if memory {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	s := &Store{db: db, branch: branch, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS blobs (
    sha TEXT PRIMARY KEY,
    data BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS trees (
    sha TEXT PRIMARY KEY,
    entries TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS commits (
    sha TEXT PRIMARY KEY,
    tree TEXT NOT NULL,
    parent TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS refs (
    name TEXT PRIMARY KEY,
    sha TEXT NOT NULL
);
`)
	return err
}

// GetFile returns the text of path at the head of the store's branch.
func (s *Store) GetFile(ctx context.Context, path string) (string, error) {
	head, err := s.GetRef(ctx, s.branch)
	if err != nil {
		return "", err
	}
	treeSHA, err := s.GetCommitTree(ctx, head)
	if err != nil {
		return "", err
	}
	entries, err := s.loadTree(ctx, treeSHA)
	if err != nil {
		return "", err
	}
	blobSHA, ok := entries[path]
	if !ok {
		return "", notFound("get file "+path, path)
	}
	var data []byte
	if err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE sha = ?`, blobSHA).Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return "", notFound("get file "+path, blobSHA)
		}
		return "", err
	}
	return string(data), nil
}

// ListFiles returns the paths tracked at the head of the branch, sorted.
func (s *Store) ListFiles(ctx context.Context) ([]string, error) {
	head, err := s.GetRef(ctx, s.branch)
	if err != nil {
		return nil, err
	}
	treeSHA, err := s.GetCommitTree(ctx, head)
	if err != nil {
		return nil, err
	}
	entries, err := s.loadTree(ctx, treeSHA)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Store) GetRef(ctx context.Context, branch string) (string, error) {
	var sha string
	err := s.db.QueryRowContext(ctx, `SELECT sha FROM refs WHERE name = ?`, refName(branch)).Scan(&sha)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", notFound("get ref", refName(branch))
		}
		return "", err
	}
	return sha, nil
}

func (s *Store) GetCommitTree(ctx context.Context, commitSHA string) (string, error) {
	var tree string
	err := s.db.QueryRowContext(ctx, `SELECT tree FROM commits WHERE sha = ?`, commitSHA).Scan(&tree)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", notFound("get commit", commitSHA)
		}
		return "", err
	}
	return tree, nil
}

// CreateBlob stores content under its git blob hash.
func (s *Store) CreateBlob(ctx context.Context, text string, enc content.Encoding) (string, error) {
	data := []byte(text)
	if enc == content.EncodingBase64 {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return "", &content.UpstreamError{Op: "create blob", StatusCode: http.StatusUnprocessableEntity, Message: "invalid base64", Err: err}
		}
		data = decoded
	}
	sha := hashObject("blob", data)
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO blobs (sha, data) VALUES (?, ?)`, sha, data); err != nil {
		return "", err
	}
	return sha, nil
}

// CreateTree applies entries on top of baseTree. An empty baseTree starts
// from an empty tree.
func (s *Store) CreateTree(ctx context.Context, baseTree string, entries []content.TreeEntry) (string, error) {
	files := map[string]string{}
	if baseTree != "" {
		base, err := s.loadTree(ctx, baseTree)
		if err != nil {
			return "", err
		}
		files = base
	}
	for _, e := range entries {
		if e.Deleted() {
			delete(files, e.Path)
			continue
		}
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM blobs WHERE sha = ?`, e.SHA).Scan(&exists)
		if err != nil {
			return "", err
		}
		if exists == 0 {
			return "", &content.UpstreamError{Op: "create tree", StatusCode: http.StatusUnprocessableEntity, Message: "unknown blob " + e.SHA}
		}
		files[e.Path] = e.SHA
	}
	return s.saveTree(ctx, files)
}

func (s *Store) CreateCommit(ctx context.Context, message, treeSHA string, parents []string) (string, error) {
	if _, err := s.loadTree(ctx, treeSHA); err != nil {
		return "", err
	}
	if len(parents) > 1 {
		return "", &content.UpstreamError{Op: "create commit", StatusCode: http.StatusUnprocessableEntity, Message: "merge commits are not supported"}
	}
	parent := ""
	if len(parents) == 1 {
		parent = parents[0]
		if _, err := s.GetCommitTree(ctx, parent); err != nil {
			return "", err
		}
	}
	created := s.now().UTC().Format(time.RFC3339Nano)
	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", treeSHA)
	if parent != "" {
		fmt.Fprintf(&b, "parent %s\n", parent)
	}
	fmt.Fprintf(&b, "date %s\n\n%s", created, message)
	sha := hashObject("commit", []byte(b.String()))
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO commits (sha, tree, parent, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		sha, treeSHA, parent, message, created)
	if err != nil {
		return "", err
	}
	return sha, nil
}

// UpdateRef moves branch to commitSHA. Like GitHub without force, the update
// is rejected unless the current head is an ancestor of commitSHA.
func (s *Store) UpdateRef(ctx context.Context, branch, commitSHA string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT sha FROM refs WHERE name = ?`, refName(branch)).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if current != "" && current != commitSHA {
		ok, err := isAncestor(ctx, tx, current, commitSHA)
		if err != nil {
			return err
		}
		if !ok {
			return &content.UpstreamError{
				Op:         "update ref " + refName(branch),
				StatusCode: http.StatusUnprocessableEntity,
				Message:    "Update is not a fast forward",
				Err:        ErrNotFastForward,
			}
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refs (name, sha) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET sha = excluded.sha`,
		refName(branch), commitSHA); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) CommitURL(commitSHA string) string {
	return "sqlite:" + s.branch + "@" + commitSHA
}

// ImportFiles commits files on top of the branch head (or as the first commit)
// and advances the branch. It returns the new commit SHA.
func (s *Store) ImportFiles(ctx context.Context, files map[string][]byte, message string) (string, error) {
	parent, err := s.GetRef(ctx, s.branch)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		return "", err
	}
	baseTree := ""
	var parents []string
	if parent != "" {
		if baseTree, err = s.GetCommitTree(ctx, parent); err != nil {
			return "", err
		}
		parents = []string{parent}
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	entries := make([]content.TreeEntry, 0, len(paths))
	for _, p := range paths {
		sha, err := s.CreateBlob(ctx, base64.StdEncoding.EncodeToString(files[p]), content.EncodingBase64)
		if err != nil {
			return "", err
		}
		entries = append(entries, content.TreeEntry{Path: p, Mode: content.FileMode, SHA: sha})
	}
	tree, err := s.CreateTree(ctx, baseTree, entries)
	if err != nil {
		return "", err
	}
	commit, err := s.CreateCommit(ctx, message, tree, parents)
	if err != nil {
		return "", err
	}
	if err := s.UpdateRef(ctx, s.branch, commit); err != nil {
		return "", err
	}
	return commit, nil
}

func (s *Store) loadTree(ctx context.Context, sha string) (map[string]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT entries FROM trees WHERE sha = ?`, sha).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("get tree", sha)
		}
		return nil, err
	}
	files := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("sqlstore: corrupt tree %s: %w", sha, err)
	}
	return files, nil
}

func (s *Store) saveTree(ctx context.Context, files map[string]string) (string, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "%s %s %s\n", content.FileMode, p, files[p])
	}
	sha := hashObject("tree", []byte(b.String()))
	raw, err := json.Marshal(files)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO trees (sha, entries) VALUES (?, ?)`, sha, string(raw)); err != nil {
		return "", err
	}
	return sha, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isAncestor(ctx context.Context, q querier, ancestor, commit string) (bool, error) {
	for cur := commit; cur != ""; {
		if cur == ancestor {
			return true, nil
		}
		var parent string
		err := q.QueryRowContext(ctx, `SELECT parent FROM commits WHERE sha = ?`, cur).Scan(&parent)
		if err != nil {
			if err == sql.ErrNoRows {
				return false, notFound("get commit", cur)
			}
			return false, err
		}
		cur = parent
	}
	return false, nil
}

func hashObject(kind string, data []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", kind, len(data))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func refName(branch string) string {
	return "refs/heads/" + strings.TrimPrefix(branch, "refs/heads/")
}

func notFound(op, what string) error {
	return &content.UpstreamError{
		Op:         op,
		StatusCode: http.StatusNotFound,
		Message:    what + " not found",
		Err:        content.ErrNotFound,
	}
}
