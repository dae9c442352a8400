package sqlstore

import (
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"

	"github.com/eringen/folio/content"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "site.db"), "main")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
	if _, err := s.GetRef(context.Background(), "main"); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("empty store should have no ref, got %v", err)
	}
}

func TestBlobUsesGitHash(t *testing.T) {
	s := setupTestStore(t)
	sha, err := s.CreateBlob(context.Background(), "hello\n", content.EncodingUTF8)
	if err != nil {
		t.Fatalf("CreateBlob failed: %v", err)
	}
	if sha != "ce013625030ba8dba906f756967f9e9ca394464a" {
		t.Errorf("sha = %s, want git's hash of hello\\n", sha)
	}
	b64, err := s.CreateBlob(context.Background(), base64.StdEncoding.EncodeToString([]byte("hello\n")), content.EncodingBase64)
	if err != nil {
		t.Fatalf("CreateBlob base64 failed: %v", err)
	}
	if b64 != sha {
		t.Errorf("base64 blob sha = %s, want %s", b64, sha)
	}
}

func TestImportAndGetFile(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.ImportFiles(ctx, map[string][]byte{
		"index.html":        []byte("<html>index</html>"),
		"projects/one.html": []byte("<html>one</html>"),
	}, "import")
	if err != nil {
		t.Fatalf("ImportFiles failed: %v", err)
	}

	got, err := s.GetFile(ctx, "projects/one.html")
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if got != "<html>one</html>" {
		t.Errorf("GetFile = %q", got)
	}

	_, err = s.GetFile(ctx, "about.html")
	if !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommitUpdatesAndDeletesPaths(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	head, err := s.ImportFiles(ctx, map[string][]byte{
		"index.html":        []byte("v1"),
		"projects/old.html": []byte("old"),
	}, "import")
	if err != nil {
		t.Fatalf("ImportFiles failed: %v", err)
	}
	base, err := s.GetCommitTree(ctx, head)
	if err != nil {
		t.Fatalf("GetCommitTree failed: %v", err)
	}
	blob, err := s.CreateBlob(ctx, "v2", content.EncodingUTF8)
	if err != nil {
		t.Fatalf("CreateBlob failed: %v", err)
	}
	tree, err := s.CreateTree(ctx, base, []content.TreeEntry{
		{Path: "index.html", Mode: content.FileMode, SHA: blob},
		{Path: "projects/old.html", Mode: content.FileMode},
	})
	if err != nil {
		t.Fatalf("CreateTree failed: %v", err)
	}
	commit, err := s.CreateCommit(ctx, "edit", tree, []string{head})
	if err != nil {
		t.Fatalf("CreateCommit failed: %v", err)
	}
	if err := s.UpdateRef(ctx, "main", commit); err != nil {
		t.Fatalf("UpdateRef failed: %v", err)
	}

	files, err := s.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 1 || files[0] != "index.html" {
		t.Errorf("files = %v, want [index.html]", files)
	}
	got, _ := s.GetFile(ctx, "index.html")
	if got != "v2" {
		t.Errorf("index.html = %q, want v2", got)
	}
}

func TestCreateTreeRejectsUnknownBlob(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.CreateTree(context.Background(), "", []content.TreeEntry{{Path: "a.html", SHA: "deadbeef"}})
	var ue *content.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestUpdateRefRejectsNonFastForward(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	head, err := s.ImportFiles(ctx, map[string][]byte{"index.html": []byte("v1")}, "import")
	if err != nil {
		t.Fatalf("ImportFiles failed: %v", err)
	}
	base, _ := s.GetCommitTree(ctx, head)

	// Two publishes racing from the same base.
	first, err := s.CreateCommit(ctx, "first", base, []string{head})
	if err != nil {
		t.Fatalf("CreateCommit failed: %v", err)
	}
	second, err := s.CreateCommit(ctx, "second", base, []string{head})
	if err != nil {
		t.Fatalf("CreateCommit failed: %v", err)
	}
	if err := s.UpdateRef(ctx, "main", first); err != nil {
		t.Fatalf("first UpdateRef failed: %v", err)
	}
	err = s.UpdateRef(ctx, "main", second)
	if !errors.Is(err, ErrNotFastForward) {
		t.Fatalf("expected ErrNotFastForward, got %v", err)
	}
	got, _ := s.GetRef(ctx, "main")
	if got != first {
		t.Errorf("ref = %s, want %s", got, first)
	}
}
