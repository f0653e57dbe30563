package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestHostWriteReadRoundTrip(t *testing.T) {
	h := NewHost()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "file.txt")

	if res := h.WriteFile(ctx, path, "hello world"); res.Status != StatusSuccess {
		t.Fatalf("write failed: %+v", res)
	}

	data, err := h.ReadFileInternal(ctx, path)
	if err != nil {
		t.Fatalf("read_file_internal: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("got %q", string(data))
	}
}

func TestHostEditFileAmbiguous(t *testing.T) {
	h := NewHost()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "foo.txt")
	if err := os.WriteFile(path, []byte("foo foo"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := h.EditFile(ctx, path, []Edit{{Search: "foo", Replace: "bar"}})
	if res.Status != StatusError {
		t.Fatalf("expected error status, got %+v", res)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "foo foo" {
		t.Fatalf("file should be unmodified, got %q", string(data))
	}
}

func TestHostEditFileNoMatch(t *testing.T) {
	h := NewHost()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "foo.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := h.EditFile(ctx, path, []Edit{{Search: "missing", Replace: "x"}})
	if res.Status != StatusError {
		t.Fatalf("expected error status, got %+v", res)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Fatalf("file should be unmodified, got %q", string(data))
	}
}

func TestHostEditFileSingleMatch(t *testing.T) {
	h := NewHost()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "foo.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := h.EditFile(ctx, path, []Edit{{Search: "world", Replace: "there"}})
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "hello there" {
		t.Fatalf("got %q", string(data))
	}
}

func TestHostEditFilePartialFailureLeavesFileUnchanged(t *testing.T) {
	h := NewHost()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "foo.txt")
	if err := os.WriteFile(path, []byte("alpha beta"), 0o644); err != nil {
		t.Fatal(err)
	}

	// First edit would succeed on its own, second can't be found: the
	// whole operation must fail before either mutation is persisted.
	edits := []Edit{
		{Search: "alpha", Replace: "ALPHA"},
		{Search: "gamma", Replace: "GAMMA"},
	}
	res := h.EditFile(ctx, path, edits)
	if res.Status != StatusError {
		t.Fatalf("expected error status, got %+v", res)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "alpha beta" {
		t.Fatalf("file should be fully unmodified, got %q", string(data))
	}
}

func TestHostReadFilePagination(t *testing.T) {
	h := NewHost()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lines.txt")
	content := "line1\nline2\nline3\nline4\nline5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res := h.ReadFile(ctx, path, 2, 2)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.TotalLines != 5 {
		t.Fatalf("expected 5 total lines, got %d", res.TotalLines)
	}
	if res.Content != "line2\nline3\n" {
		t.Fatalf("got %q", res.Content)
	}
	if res.ReturnedLines != 2 {
		t.Fatalf("expected 2 returned lines, got %d", res.ReturnedLines)
	}
}

func TestHostReadFileStartLineClamped(t *testing.T) {
	h := NewHost()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lines.txt")
	if err := os.WriteFile(path, []byte("only line\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := h.ReadFile(ctx, path, -5, 0)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.StartLine != 1 {
		t.Fatalf("expected start_line clamped to 1, got %d", res.StartLine)
	}
}

func TestHostExecuteTruncatesLongOutput(t *testing.T) {
	h := NewHost()
	ctx := context.Background()

	res := h.Execute(ctx, "yes x | head -c 20000")
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Stdout) > maxOutputBytes+len(truncationMarker) {
		t.Fatalf("stdout not truncated, len=%d", len(res.Stdout))
	}
}

func TestHostExecuteNonZeroExit(t *testing.T) {
	h := NewHost()
	ctx := context.Background()

	res := h.Execute(ctx, "exit 3")
	if res.Status != StatusError {
		t.Fatalf("expected error status, got %+v", res)
	}
	if res.ReturnCode != 3 {
		t.Fatalf("expected return code 3, got %d", res.ReturnCode)
	}
}
