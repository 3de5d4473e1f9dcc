package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWriteFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScan_FiltersBySupportedExtension(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.flac"), 4096)
	mustWriteFile(t, filepath.Join(dir, "b.txt"), 4096)

	res, err := Scan(Request{Directories: []string{dir}, Recursive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Files) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %v", len(res.Files), res.Files)
	}
}

func TestScan_DeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "z.mp3"), 4096)
	mustWriteFile(t, filepath.Join(dir, "a.mp3"), 4096)
	mustWriteFile(t, filepath.Join(dir, "m.mp3"), 4096)

	res, err := Scan(Request{Directories: []string{dir}, Recursive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(res.Files); i++ {
		if res.Files[i-1] > res.Files[i] {
			t.Errorf("expected lexicographic order, got %v", res.Files)
		}
	}
}

func TestScan_SizeFilter(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "tiny.mp3"), 10)
	mustWriteFile(t, filepath.Join(dir, "ok.mp3"), 4096)

	res, err := Scan(Request{Directories: []string{dir}, Recursive: true, MinFileSizeKB: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Files) != 1 || filepath.Base(res.Files[0]) != "ok.mp3" {
		t.Errorf("expected only ok.mp3 to pass the size filter, got %v", res.Files)
	}
}

func TestScan_ExcludePattern(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "keep.mp3"), 4096)
	mustWriteFile(t, filepath.Join(dir, "skip.mp3"), 4096)

	res, err := Scan(Request{Directories: []string{dir}, Recursive: true, ExcludePatterns: []string{"skip.*"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Files) != 1 || filepath.Base(res.Files[0]) != "keep.mp3" {
		t.Errorf("expected only keep.mp3, got %v", res.Files)
	}
}

func TestScan_NonRecursiveSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "top.mp3"), 4096)
	mustWriteFile(t, filepath.Join(dir, "sub", "nested.mp3"), 4096)

	res, err := Scan(Request{Directories: []string{dir}, Recursive: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Files) != 1 || filepath.Base(res.Files[0]) != "top.mp3" {
		t.Errorf("expected only top.mp3 in non-recursive scan, got %v", res.Files)
	}
}

func TestScan_MissingRootFails(t *testing.T) {
	_, err := Scan(Request{Directories: []string{"/nonexistent/root/path"}})
	if err == nil {
		t.Fatal("expected an error for a missing root")
	}
}

func TestScan_DeduplicatesExplicitFilePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dup.flac")
	mustWriteFile(t, path, 4096)

	res, err := Scan(Request{FilePaths: []string{path, path}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Files) != 1 {
		t.Errorf("expected deduplication to collapse to 1 file, got %d", len(res.Files))
	}
}
