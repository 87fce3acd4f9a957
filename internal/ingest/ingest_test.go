package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFromDirOrdersByNumericSuffix(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "scan-10.png")
	touch(t, dir, "scan-2.png")
	touch(t, dir, "scan-1.jpg")
	touch(t, dir, "notes.txt") // ignored

	pages, err := FromDir(dir)
	if err != nil {
		t.Fatalf("FromDir failed: %v", err)
	}

	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}

	wantOrder := []string{"scan-1.jpg", "scan-2.png", "scan-10.png"}
	for i, want := range wantOrder {
		if filepath.Base(pages[i].Path) != want {
			t.Errorf("page %d: got %s want %s", i, filepath.Base(pages[i].Path), want)
		}
		if pages[i].Number != i+1 {
			t.Errorf("page %d: number %d, want %d", i, pages[i].Number, i+1)
		}
	}
}

func TestFromDirUnnumberedSortAfterNumbered(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "cover.png")
	touch(t, dir, "page_3.png")

	pages, err := FromDir(dir)
	if err != nil {
		t.Fatalf("FromDir failed: %v", err)
	}
	if filepath.Base(pages[0].Path) != "page_3.png" {
		t.Errorf("numbered page should sort first, got %s", filepath.Base(pages[0].Path))
	}
}

func TestFromDirEmpty(t *testing.T) {
	if _, err := FromDir(t.TempDir()); err == nil {
		t.Error("expected error for directory without images")
	}
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		path string
		want int
		ok   bool
	}{
		{"page_0042.png", 42, true},
		{"scan-7-final.jpg", 7, true},
		{"cover.png", 0, false},
	}
	for _, tt := range tests {
		got, ok := extractNumber(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("extractNumber(%q) = (%d, %v), want (%d, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
